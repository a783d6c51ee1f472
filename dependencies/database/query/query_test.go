package query

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/saba2003/devcamper-api/dependencies/database"
	_ "github.com/saba2003/devcamper-api/dependencies/database/mock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newStore(t *testing.T) database.Database {
	t.Helper()
	ctx := context.Background()
	db, err := database.New(ctx, "mock://local/query")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close(ctx) })
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := make([]database.M, 25)
	for i := range docs {
		docs[i] = database.M{
			"_id":       fmt.Sprintf("c%02d", i+1),
			"title":     fmt.Sprintf("Course %02d", i+1),
			"tuition":   float64(1000 * (i + 1)),
			"rating":    float64(i % 5),
			"bootcamp":  fmt.Sprintf("b%d", i%2),
			"secret":    "s",
			"createdAt": base.Add(time.Duration(i) * time.Hour),
		}
	}
	if _, err = db.Insert(ctx, "courses", docs); err != nil {
		t.Fatal(err)
	}
	bootcamps := []database.M{
		{"_id": "b0", "name": "Devworks", "description": "d0"},
		{"_id": "b1", "name": "ModernTech", "description": "d1"},
	}
	if _, err = db.Insert(ctx, "bootcamps", bootcamps); err != nil {
		t.Fatal(err)
	}
	return db
}

func ids(docs []database.M) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID()
	}
	return out
}

func TestRunPagination(t *testing.T) {
	p := New(newStore(t))
	courses := Collection{Name: "courses"}
	tests := []struct {
		name      string
		raw       string
		wantCount int
		wantFirst string
		next      *PageRef
		previous  *PageRef
	}{
		{name: "defaults", raw: "", wantCount: 25, wantFirst: "c25"},
		{name: "middle page", raw: "page=2&limit=10", wantCount: 10, wantFirst: "c15",
			next: &PageRef{Page: 3, Limit: 10}, previous: &PageRef{Page: 1, Limit: 10}},
		{name: "last page", raw: "page=3&limit=10", wantCount: 5, wantFirst: "c05",
			previous: &PageRef{Page: 2, Limit: 10}},
		{name: "first page", raw: "limit=10", wantCount: 10, wantFirst: "c25",
			next: &PageRef{Page: 2, Limit: 10}},
		{name: "malformed page falls back", raw: "page=abc&limit=10", wantCount: 10, wantFirst: "c25",
			next: &PageRef{Page: 2, Limit: 10}},
		{name: "negative limit falls back", raw: "limit=-3", wantCount: 25, wantFirst: "c25"},
		{name: "beyond the end", raw: "page=9&limit=10", wantCount: 0,
			previous: &PageRef{Page: 8, Limit: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.raw)
			env, err := p.Run(context.Background(), courses, values)
			if err != nil {
				t.Fatal(err)
			}
			if !env.Success || env.Count != tt.wantCount || len(env.Data) != tt.wantCount {
				t.Fatalf("count = %d, len = %d, want %d", env.Count, len(env.Data), tt.wantCount)
			}
			if env.Data == nil {
				t.Fatal("data must never be nil")
			}
			if tt.wantCount > 0 && env.Data[0].ID() != tt.wantFirst {
				t.Errorf("first = %s, want %s", env.Data[0].ID(), tt.wantFirst)
			}
			if fmt.Sprint(env.Pagination.Next) != fmt.Sprint(tt.next) {
				t.Errorf("next = %v, want %v", env.Pagination.Next, tt.next)
			}
			if fmt.Sprint(env.Pagination.Previous) != fmt.Sprint(tt.previous) {
				t.Errorf("previous = %v, want %v", env.Pagination.Previous, tt.previous)
			}
		})
	}
}

func TestRunFilterSortSelect(t *testing.T) {
	p := New(newStore(t))
	courses := Collection{Name: "courses", Hidden: []string{"secret"}}
	t.Run("range filter", func(t *testing.T) {
		values := url.Values{"tuition[gte]": {"3000"}, "tuition[lte]": {"5000"}, "sort": {"tuition"}}
		env, err := p.Run(context.Background(), courses, values)
		if err != nil {
			t.Fatal(err)
		}
		if got := fmt.Sprint(ids(env.Data)); got != "[c03 c04 c05]" {
			t.Errorf("got %s", got)
		}
		if env.Total != 3 {
			t.Errorf("total = %d, want the filtered count 3", env.Total)
		}
	})
	t.Run("in filter and multi key sort", func(t *testing.T) {
		values := url.Values{"rating[in]": {"4,3"}, "sort": {"-rating,title"}, "limit": {"3"}}
		env, err := p.Run(context.Background(), courses, values)
		if err != nil {
			t.Fatal(err)
		}
		if got := fmt.Sprint(ids(env.Data)); got != "[c05 c10 c15]" {
			t.Errorf("got %s", got)
		}
	})
	t.Run("select keeps _id and hides the rest", func(t *testing.T) {
		values := url.Values{"select": {"title,tuition"}, "limit": {"1"}}
		env, err := p.Run(context.Background(), courses, values)
		if err != nil {
			t.Fatal(err)
		}
		doc := env.Data[0]
		if len(doc) != 3 || doc["title"] == nil || doc["tuition"] == nil || doc.ID() == "" {
			t.Errorf("unexpected projection %v", doc)
		}
	})
	t.Run("hidden fields are never returned", func(t *testing.T) {
		for _, raw := range []string{"", "select=title,secret", "select=-title"} {
			values, _ := url.ParseQuery(raw)
			env, err := p.Run(context.Background(), courses, values)
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := env.Data[0]["secret"]; ok {
				t.Errorf("%q returned the hidden field", raw)
			}
		}
	})
	t.Run("populate", func(t *testing.T) {
		c := courses
		c.Populate = []database.Populate{{Path: "bootcamp", Collection: "bootcamps", Select: []string{"name"}}}
		env, err := p.Run(context.Background(), c, url.Values{"limit": {"2"}})
		if err != nil {
			t.Fatal(err)
		}
		for _, doc := range env.Data {
			bc, ok := doc["bootcamp"].(database.M)
			if !ok || bc.String("name") == "" || bc["description"] != nil {
				t.Errorf("bootcamp not populated: %v", doc["bootcamp"])
			}
		}
	})
}

func TestRunCountMode(t *testing.T) {
	db := newStore(t)
	values := url.Values{"bootcamp": {"b1"}, "limit": {"5"}}
	tests := []struct {
		name      string
		mode      CountMode
		wantTotal int64
		wantNext  bool
	}{
		{name: "filtered", mode: CountFiltered, wantTotal: 12, wantNext: true},
		{name: "collection", mode: CountCollection, wantTotal: 25, wantNext: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := New(db, WithCountMode(tt.mode)).Run(context.Background(), Collection{Name: "courses"}, values)
			if err != nil {
				t.Fatal(err)
			}
			if env.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", env.Total, tt.wantTotal)
			}
			if (env.Pagination.Next != nil) != tt.wantNext {
				t.Errorf("next = %v", env.Pagination.Next)
			}
		})
	}
}

func TestRunScope(t *testing.T) {
	p := New(newStore(t))
	c := Collection{Name: "courses", Scope: database.C{{Key: "bootcamp", Value: "b0"}}}
	// a client value for the scoped field can only narrow the scope
	env, err := p.Run(context.Background(), c, url.Values{"bootcamp": {"b1"}})
	if err != nil {
		t.Fatal(err)
	}
	if env.Count != 0 || env.Total != 0 {
		t.Errorf("scope leaked: %v", ids(env.Data))
	}
	env, err = p.Run(context.Background(), c, url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	if env.Total != 13 {
		t.Errorf("total = %d, want 13", env.Total)
	}
}

func TestRunSelectLeavesOutPopulate(t *testing.T) {
	p := New(newStore(t))
	bootcamps := Collection{Name: "bootcamps", Populate: []database.Populate{
		{Path: "courses", Collection: "courses", ForeignField: "bootcamp", Select: []string{"title"}},
	}}
	env, err := p.Run(context.Background(), bootcamps, url.Values{"select": {"name"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range env.Data {
		if _, ok := d["courses"]; ok || len(d) != 2 {
			t.Errorf("select=name returned %v", d)
		}
	}
	env, err = p.Run(context.Background(), bootcamps, url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range env.Data {
		if courses, ok := d["courses"].([]database.M); !ok || len(courses) == 0 {
			t.Errorf("courses not populated on %v", d)
		}
	}
}

func TestRunSnowflakeReference(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	bootcampID := "2110355451568332800"
	if err := db.InsertOne(ctx, "courses", database.M{
		"_id": "2110355451568337152", "title": "Go", "bootcamp": bootcampID, "createdAt": time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	p := New(db)
	courses := Collection{Name: "courses"}
	for _, values := range []url.Values{
		{"bootcamp": {bootcampID}},
		{"_id": {"2110355451568337152"}},
	} {
		env, err := p.Run(ctx, courses, values)
		if err != nil {
			t.Fatal(err)
		}
		if env.Count != 1 || env.Total != 1 || env.Data[0].String("title") != "Go" {
			t.Errorf("%v: count=%d total=%d", values, env.Count, env.Total)
		}
	}
}

func TestParse(t *testing.T) {
	p := New(nil, WithMaxLimit(50), WithDefaultSort("name"))
	c := Collection{Name: "users", Hidden: []string{"password"}}
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr codes.Code
	}{
		{name: "plain equality", raw: "housing=true&name=login", want: "[housing eq true][name eq login]"},
		{name: "operator tokens", raw: "averageCost[lt]=10&rating[gt]=2", want: "[averageCost lt 10][rating gt 2]"},
		{name: "nested path", raw: "location[state]=MA", want: "[location.state eq MA]"},
		{name: "repeated value", raw: "careers=UI&careers=Business", want: "[careers in [UI Business]]"},
		{name: "reserved keys", raw: "select=name&sort=name&page=2&limit=3", want: ""},
		{name: "dollar injection", raw: "averageCost[$where]=1", wantErr: codes.InvalidArgument},
		{name: "dollar field", raw: "$where=1", wantErr: codes.InvalidArgument},
		{name: "unknown operator is a path", raw: "cost[ne]=1", want: "[cost.ne eq 1]"},
		{name: "hidden filter", raw: "password[gt]=a", wantErr: codes.InvalidArgument},
		{name: "hidden sort", raw: "sort=-password", wantErr: codes.InvalidArgument},
		{name: "empty operator value", raw: "rating[gte]=", wantErr: codes.InvalidArgument},
		{name: "empty in list", raw: "rating[in]=,", wantErr: codes.InvalidArgument},
		{name: "broken bracket", raw: "rating[gte=1", wantErr: codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			req, err := p.Parse(c, values)
			if tt.wantErr != codes.OK {
				if status.Code(err) != tt.wantErr {
					t.Fatalf("err = %v, want %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := req.Filter.String(); got != tt.want {
				t.Errorf("filter = %q, want %q", got, tt.want)
			}
		})
	}
	t.Run("defaults and caps", func(t *testing.T) {
		req, err := p.Parse(c, url.Values{"limit": {"500"}})
		if err != nil {
			t.Fatal(err)
		}
		if req.Limit != 50 || req.Page != 1 || fmt.Sprint(req.Sort) != "[name]" {
			t.Errorf("unexpected request %+v", req)
		}
		if fmt.Sprint(req.Select) != "[-password]" {
			t.Errorf("select = %v", req.Select)
		}
		start, end := req.Window()
		if start != 0 || end != 50 {
			t.Errorf("window = %d..%d", start, end)
		}
	})
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"10000", float64(10000)},
		{"4.5", 4.5},
		{"007", "007"},
		{"1e3", "1e3"},
		{"NaN", "NaN"},
		{"true", true},
		{"false", false},
		{"login", "login"},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"9007199254740992", float64(1 << 53)},
		{"2110355451568332800", "2110355451568332800"},
		{"-2110355451568332800", "-2110355451568332800"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := coerce(tt.in); got != tt.want {
				t.Errorf("coerce(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

type failingStore struct {
	database.Database
	err error
}

func (f *failingStore) Count(context.Context, string, database.C) (int64, error) {
	return 0, f.err
}

func (f *failingStore) Find(context.Context, string, *database.Query) ([]database.M, error) {
	return nil, f.err
}

func TestRunUpstreamError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "plain error", err: errors.New("connection reset"), want: codes.Unavailable},
		{name: "status error", err: status.Error(codes.Internal, "boom"), want: codes.Internal},
		{name: "deadline", err: context.DeadlineExceeded, want: codes.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := New(&failingStore{err: tt.err}).Run(context.Background(), Collection{Name: "courses"}, nil)
			if env != nil {
				t.Errorf("no partial envelope expected, got %+v", env)
			}
			if status.Code(err) != tt.want {
				t.Errorf("code = %s, want %s", status.Code(err), tt.want)
			}
		})
	}
}
