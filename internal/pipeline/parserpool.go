package pipeline

import (
	"context"
	"runtime"
	"sync"

	"github.com/kestrel-forge/codegraphd/internal/parser"
)

// parserWorkerCount clamps the parser pool to [4, 8] copies of
// runtime.NumCPU()/2 — enough parallelism to keep tree-sitter busy without
// starving the embedder/writer stages of CPU, with every worker sharing
// the same scan channel.
func parserWorkerCount() int {
	n := runtime.NumCPU() / 2
	if n < 4 {
		n = 4
	}
	if n > 8 {
		n = 8
	}
	return n
}

// Parser is the slice of parser.Parser the pipeline needs.
type Parser interface {
	ParseFile(ctx context.Context, source []byte, path string, lang parser.Language) (*parser.ParsedDoc, error)
}

// runParsePool fans a single scan channel out across parserWorkerCount
// goroutines, each calling p.ParseFile, and fans the results back into one
// output channel. Files that fail to parse are dropped with a logged
// warning rather than aborting the run — one malformed file must never
// block the rest of a sync.
func runParsePool(ctx context.Context, in <-chan FileTask, p Parser, onError func(path string, err error), stats *Result) <-chan ParsedFile {
	out := make(chan ParsedFile, parseChannelCap)

	var statsMu sync.Mutex
	var wg sync.WaitGroup
	workers := parserWorkerCount()
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for task := range in {
				select {
				case <-ctx.Done():
					return
				default:
				}

				statsMu.Lock()
				stats.FilesScanned++
				statsMu.Unlock()

				doc, err := p.ParseFile(ctx, task.Content, task.Path, task.Language)
				if err != nil {
					if onError != nil {
						onError(task.Path, err)
					}
					continue
				}
				select {
				case out <- ParsedFile{Task: task, Doc: doc}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
