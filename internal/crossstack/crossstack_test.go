package crossstack

import (
	"context"
	"testing"
)

func TestExtractRoutesExpress(t *testing.T) {
	src := `
const router = require('express').Router()
router.get("/api/users/:id", getUser)
router.post('/api/users', createUser)
`
	routes := ExtractRoutes("routes.js", src)
	if len(routes) != 2 {
		t.Fatalf("got %d routes, want 2: %+v", len(routes), routes)
	}
	if routes[0].Method != "GET" || routes[0].Path != "/api/users/:id" || routes[0].HandlerSymbol != "getUser" {
		t.Fatalf("unexpected route: %+v", routes[0])
	}
}

func TestExtractRoutesFastAPI(t *testing.T) {
	src := `
@app.get("/api/users/{id}")
async def get_user(id: int):
    return db.fetch(id)
`
	routes := ExtractRoutes("main.py", src)
	if len(routes) != 1 {
		t.Fatalf("got %d routes, want 1: %+v", len(routes), routes)
	}
	if routes[0].Method != "GET" || routes[0].Path != "/api/users/{id}" || routes[0].HandlerSymbol != "get_user" {
		t.Fatalf("unexpected route: %+v", routes[0])
	}
}

func TestExtractRoutesFlask(t *testing.T) {
	src := `
@app.route("/api/users", methods=["POST"])
def create_user():
    pass
`
	routes := ExtractRoutes("app.py", src)
	if len(routes) != 1 {
		t.Fatalf("got %d routes, want 1: %+v", len(routes), routes)
	}
	if routes[0].Method != "POST" || routes[0].Path != "/api/users" {
		t.Fatalf("unexpected route: %+v", routes[0])
	}
}

func TestExtractRoutesAxum(t *testing.T) {
	src := `
let app = Router::new()
    .route("/api/users/:id", get(get_user))
    .route("/api/users", post(create_user));
`
	routes := ExtractRoutes("main.rs", src)
	if len(routes) != 2 {
		t.Fatalf("got %d routes, want 2: %+v", len(routes), routes)
	}
	if routes[0].Path != "/api/users/:id" || routes[0].HandlerSymbol != "get_user" {
		t.Fatalf("unexpected route: %+v", routes[0])
	}
}

func TestExtractRoutesNestJS(t *testing.T) {
	src := `
@Controller('users')
export class UsersController {
  @Get(':id')
  async findOne(id: string) {
    return this.service.findOne(id);
  }
}
`
	routes := ExtractRoutes("users.controller.ts", src)
	if len(routes) != 1 {
		t.Fatalf("got %d routes, want 1: %+v", len(routes), routes)
	}
	if routes[0].Method != "GET" || routes[0].Path != "/users/:id" {
		t.Fatalf("unexpected route (controller prefix not composed?): %+v", routes[0])
	}
}

func TestExtractFrontendCallsAxios(t *testing.T) {
	src := "const res = await axios.get(`/api/users/${uid}`)\n"
	calls := ExtractFrontendCalls("api.ts", src)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1: %+v", len(calls), calls)
	}
	if calls[0].Method != "GET" || calls[0].Path != "/api/users/:param" {
		t.Fatalf("unexpected call: %+v", calls[0])
	}
}

func TestExtractFrontendCallsFetch(t *testing.T) {
	src := `fetch("/api/users")` + "\n"
	calls := ExtractFrontendCalls("api.js", src)
	if len(calls) != 1 || calls[0].Path != "/api/users" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestPathsMatchWithParameterSegments(t *testing.T) {
	cases := []struct {
		backend, frontend string
		want              bool
	}{
		{"/api/users/:id", "/api/users/:param", true},
		{"/api/users/{id}", "/api/users/:param", true},
		{"/api/users", "/api/users", true},
		{"/api/users/:id", "/api/users", false},
		{"/api/users/:id", "/api/orders/:param", false},
	}
	for _, c := range cases {
		if got := pathsMatch(c.backend, c.frontend); got != c.want {
			t.Errorf("pathsMatch(%q, %q) = %v, want %v", c.backend, c.frontend, got, c.want)
		}
	}
}

func TestJaccardSimilarity(t *testing.T) {
	a := []string{"id", "name", "email"}
	b := []string{"id", "name", "emailaddress"}
	sim := jaccardSimilarity(a, b)
	// intersection = {id, name} = 2, union = {id, name, email, emailaddress} = 4
	if sim != 0.5 {
		t.Fatalf("jaccardSimilarity = %v, want 0.5", sim)
	}
}

func TestJaccardSimilarityIdenticalSets(t *testing.T) {
	a := []string{"id", "name", "email"}
	if sim := jaccardSimilarity(a, a); sim != 1.0 {
		t.Fatalf("jaccardSimilarity of identical sets = %v, want 1.0", sim)
	}
}

type fakeStore struct {
	routes       []StoredRoute
	calls        []StoredCall
	fingerprints []Fingerprint
	links        []EntityLink
	clearedLinks bool
	crossLinks   []fingerprintPair
}

func (f *fakeStore) AllAPIEndpoints(ctx context.Context) ([]StoredRoute, error)       { return f.routes, nil }
func (f *fakeStore) AllFrontendAPICalls(ctx context.Context) ([]StoredCall, error)     { return f.calls, nil }
func (f *fakeStore) AllTypeFingerprints(ctx context.Context) ([]Fingerprint, error)    { return f.fingerprints, nil }
func (f *fakeStore) ReplaceEntityLinks(ctx context.Context, links []EntityLink) error {
	f.links = links
	return nil
}
func (f *fakeStore) ClearCrossStackLinks(ctx context.Context) error {
	f.clearedLinks = true
	return nil
}
func (f *fakeStore) InsertCrossStackLink(ctx context.Context, leftID, rightID int64, similarity float64) error {
	f.crossLinks = append(f.crossLinks, fingerprintPair{left: Fingerprint{ID: leftID}, right: Fingerprint{ID: rightID}, similarity: similarity})
	return nil
}

func TestSyncLinksMatchingRouteAndCall(t *testing.T) {
	store := &fakeStore{
		routes: []StoredRoute{{FileID: 1, Method: "GET", Path: "/api/users/:id", HandlerSymbol: "getUser", Framework: "express"}},
		calls:  []StoredCall{{FileID: 2, Method: "GET", Path: "/api/users/:param"}},
	}
	result, err := Sync(context.Background(), store)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.RouteLinks != 1 {
		t.Fatalf("RouteLinks = %d, want 1", result.RouteLinks)
	}
	if len(store.links) != 1 || store.links[0].LinkType != "api_route" || store.links[0].Confidence != 0.8 {
		t.Fatalf("unexpected link: %+v", store.links)
	}
}

func TestSyncSkipsNonMatchingRoutes(t *testing.T) {
	store := &fakeStore{
		routes: []StoredRoute{{FileID: 1, Method: "POST", Path: "/api/orders", HandlerSymbol: "createOrder"}},
		calls:  []StoredCall{{FileID: 2, Method: "GET", Path: "/api/users"}},
	}
	result, err := Sync(context.Background(), store)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.RouteLinks != 0 {
		t.Fatalf("RouteLinks = %d, want 0", result.RouteLinks)
	}
}

func TestSyncBuildsStructuralLinkAcrossLanguagesAboveThreshold(t *testing.T) {
	store := &fakeStore{
		fingerprints: []Fingerprint{
			{ID: 1, Language: "rust", Name: "User", NormalizedFields: []string{"id", "name", "email"}},
			{ID: 2, Language: "typescript", Name: "IUser", NormalizedFields: []string{"id", "name", "email"}},
		},
	}
	result, err := Sync(context.Background(), store)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.StructuralLinks != 1 {
		t.Fatalf("StructuralLinks = %d, want 1", result.StructuralLinks)
	}
	if !store.clearedLinks {
		t.Fatal("expected ClearCrossStackLinks to be called before rebuild")
	}
}

func TestSyncSkipsStructuralLinkForSameLanguagePair(t *testing.T) {
	store := &fakeStore{
		fingerprints: []Fingerprint{
			{ID: 1, Language: "go", Name: "User", NormalizedFields: []string{"id", "name", "email"}},
			{ID: 2, Language: "go", Name: "Account", NormalizedFields: []string{"id", "name", "email"}},
		},
	}
	result, err := Sync(context.Background(), store)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.StructuralLinks != 0 {
		t.Fatalf("StructuralLinks = %d, want 0 for a same-language pair", result.StructuralLinks)
	}
}

func TestSyncSkipsStructuralLinkBelowJaccardThreshold(t *testing.T) {
	store := &fakeStore{
		fingerprints: []Fingerprint{
			{ID: 1, Language: "rust", Name: "User", NormalizedFields: []string{"id", "name", "email", "age"}},
			{ID: 2, Language: "typescript", Name: "Order", NormalizedFields: []string{"id", "total", "items"}},
		},
	}
	result, err := Sync(context.Background(), store)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.StructuralLinks != 0 {
		t.Fatalf("StructuralLinks = %d, want 0 below the 0.75 threshold", result.StructuralLinks)
	}
}
