package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/saba2003/devcamper-api/auth"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/dependencies/database/mock"
	"github.com/saba2003/devcamper-api/mailer"
	"github.com/saba2003/devcamper-api/restmux/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type testAPI struct {
	t       *testing.T
	srv     *Server
	handler http.Handler
	db      *mock.Mock
	mails   chan *mailer.Message
	uploads string
}

type mailCapture chan *mailer.Message

func (c mailCapture) Send(_ context.Context, msg *mailer.Message) error {
	c <- msg
	return nil
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	db, err := mock.New(ctx, "mock://local/devcamper")
	if err != nil {
		t.Fatal(err)
	}
	mails := make(chan *mailer.Message, 4)
	uploads := t.TempDir()
	srv, err := New(ctx, &Dependencies{DB: db, Mail: &mailer.Mail{Mailer: mailCapture(mails)}}, &Config{
		JWT:    JWTConfig{Secret: "test-secret"},
		Upload: UploadConfig{MaxSize: 1 << 16, Path: uploads},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := mux.NewServeMux(mux.WithOutLog())
	srv.Register(m)
	return &testAPI{t: t, srv: srv, handler: m, db: db, mails: mails, uploads: uploads}
}

type response struct {
	code    int
	body    map[string]any
	cookies []*http.Cookie
}

func (a *testAPI) do(method, path, token string, body any) *response {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req, token)
}

func (a *testAPI) send(req *http.Request, token string) *response {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	resp := &response{code: w.Code, cookies: w.Result().Cookies()}
	if err := json.Unmarshal(w.Body.Bytes(), &resp.body); err != nil {
		a.t.Fatalf("%s %s: invalid body %q", req.Method, req.URL, w.Body.String())
	}
	return resp
}

// user insert a user of role and return its id and token
func (a *testAPI) user(name, role string) (string, string) {
	a.t.Helper()
	ctx := context.Background()
	hash, err := auth.HashPassword("123456")
	if err != nil {
		a.t.Fatal(err)
	}
	doc := database.M{"name": name, "email": name + "@gmail.com", "role": role, "password": hash}
	stamp(doc)
	if err = a.db.InsertOne(ctx, Users, doc); err != nil {
		a.t.Fatal(err)
	}
	token, err := a.srv.gate.Identity().Issue(ctx, auth.PrincipalOf(doc))
	if err != nil {
		a.t.Fatal(err)
	}
	return doc.ID(), token
}

func (a *testAPI) bootcamp(token, name string) string {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/api/v1/bootcamps", token, map[string]any{
		"name":        name,
		"description": "Full stack web development",
		"website":     "https://devworks.com",
		"email":       "enroll@devworks.com",
		"address":     "233 Bay State Rd Boston MA 02215",
		"careers":     []string{"Web Development", "UI/UX", "Business"},
		"housing":     true,
	})
	if resp.code != http.StatusCreated {
		a.t.Fatalf("create bootcamp: %d %v", resp.code, resp.body)
	}
	return resp.body["data"].(map[string]any)["_id"].(string)
}

func (a *testAPI) find(table, id string) database.M {
	a.t.Helper()
	doc, err := a.db.FindOne(context.Background(), table, database.ByID(id))
	if err != nil {
		a.t.Fatalf("find %s %s: %v", table, id, err)
	}
	return doc
}

func (a *testAPI) count(table string) int64 {
	a.t.Helper()
	n, err := a.db.Count(context.Background(), table, nil)
	if err != nil {
		a.t.Fatal(err)
	}
	return n
}

func errorOf(r *response) string {
	msg, _ := r.body["error"].(string)
	return msg
}

func TestAuthFlow(t *testing.T) {
	a := newTestAPI(t)
	register := map[string]any{"name": "John", "email": "john@gmail.com", "password": "123456", "role": "publisher"}
	resp := a.do(http.MethodPost, "/api/v1/auth/register", "", register)
	if resp.code != http.StatusOK || resp.body["token"] == "" {
		t.Fatalf("register: %d %v", resp.code, resp.body)
	}
	if len(resp.cookies) != 1 || resp.cookies[0].Name != auth.CookieName || !resp.cookies[0].HttpOnly {
		t.Errorf("cookies = %v", resp.cookies)
	}
	if resp = a.do(http.MethodPost, "/api/v1/auth/register", "", register); errorOf(resp) != "Duplicate field value entered" {
		t.Errorf("duplicate register: %d %v", resp.code, resp.body)
	}
	register["email"], register["role"] = "root@gmail.com", "admin"
	if resp = a.do(http.MethodPost, "/api/v1/auth/register", "", register); resp.code != http.StatusBadRequest {
		t.Errorf("admin self register: %d %v", resp.code, resp.body)
	}

	tests := []struct {
		name string
		body map[string]any
		code int
		msg  string
	}{
		{name: "missing", body: map[string]any{"email": "john@gmail.com"}, code: 400, msg: "Please provide an email and password"},
		{name: "unknown", body: map[string]any{"email": "jane@gmail.com", "password": "123456"}, code: 401, msg: "Invalid credentials"},
		{name: "wrong", body: map[string]any{"email": "john@gmail.com", "password": "654321"}, code: 401, msg: "Invalid credentials"},
		{name: "ok", body: map[string]any{"email": "john@gmail.com", "password": "123456"}, code: 200},
	}
	var token string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := a.do(http.MethodPost, "/api/v1/auth/login", "", tt.body)
			if resp.code != tt.code || errorOf(resp) != tt.msg {
				t.Errorf("login: %d %v", resp.code, resp.body)
			}
			if tt.code == 200 {
				token, _ = resp.body["token"].(string)
			}
		})
	}

	resp = a.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	me, _ := resp.body["data"].(map[string]any)
	if resp.code != http.StatusOK || me["email"] != "john@gmail.com" || me["role"] != "publisher" {
		t.Fatalf("me: %d %v", resp.code, resp.body)
	}
	if _, ok := me["password"]; ok {
		t.Error("the password hash is returned")
	}

	resp = a.do(http.MethodPut, "/api/v1/auth/updatedetails", token, map[string]any{"name": "John Doe", "role": "admin"})
	if data, _ := resp.body["data"].(map[string]any); resp.code != 200 || data["name"] != "John Doe" || data["role"] != "publisher" {
		t.Errorf("updatedetails: %d %v", resp.code, resp.body)
	}

	resp = a.do(http.MethodPut, "/api/v1/auth/updatepassword", token, map[string]any{"currentPassword": "bad", "newPassword": "abcdef"})
	if resp.code != http.StatusUnauthorized || errorOf(resp) != "Password is incorrect" {
		t.Errorf("updatepassword: %d %v", resp.code, resp.body)
	}
	resp = a.do(http.MethodPut, "/api/v1/auth/updatepassword", token, map[string]any{"currentPassword": "123456", "newPassword": "abcdef"})
	if resp.code != http.StatusOK || resp.body["token"] == nil {
		t.Errorf("updatepassword: %d %v", resp.code, resp.body)
	}

	resp = a.do(http.MethodGet, "/api/v1/auth/logout", token, nil)
	if resp.code != http.StatusOK || len(resp.cookies) != 1 || resp.cookies[0].Value != "none" {
		t.Errorf("logout: %d %v %v", resp.code, resp.body, resp.cookies)
	}
}

func TestResetPassword(t *testing.T) {
	a := newTestAPI(t)
	a.user("jane", auth.RoleUser)
	resp := a.do(http.MethodPost, "/api/v1/auth/forgotpassword", "", map[string]any{"email": "nobody@gmail.com"})
	if resp.code != http.StatusNotFound || errorOf(resp) != "There is no user with that email" {
		t.Errorf("forgotpassword: %d %v", resp.code, resp.body)
	}
	resp = a.do(http.MethodPost, "/api/v1/auth/forgotpassword", "", map[string]any{"email": "jane@gmail.com"})
	if resp.code != http.StatusOK || resp.body["data"] != "Email sent" {
		t.Fatalf("forgotpassword: %d %v", resp.code, resp.body)
	}
	msg := <-a.mails
	if msg.To != "jane@gmail.com" {
		t.Errorf("mail to %s", msg.To)
	}
	token := regexp.MustCompile(`resetpassword/([0-9a-f]+)`).FindStringSubmatch(msg.Text)
	if len(token) != 2 {
		t.Fatalf("no reset url in %q", msg.Text)
	}
	if resp = a.do(http.MethodPut, "/api/v1/auth/resetpassword/deadbeef", "", map[string]any{"password": "abcdef"}); errorOf(resp) != "Invalid token" {
		t.Errorf("resetpassword: %d %v", resp.code, resp.body)
	}
	if resp = a.do(http.MethodPut, "/api/v1/auth/resetpassword/"+token[1], "", map[string]any{"password": "abcdef"}); resp.code != http.StatusOK {
		t.Fatalf("resetpassword: %d %v", resp.code, resp.body)
	}
	if resp = a.do(http.MethodPut, "/api/v1/auth/resetpassword/"+token[1], "", map[string]any{"password": "abcdef"}); resp.code != http.StatusBadRequest {
		t.Errorf("reused reset token: %d %v", resp.code, resp.body)
	}
	resp = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "jane@gmail.com", "password": "abcdef"})
	if resp.code != http.StatusOK {
		t.Errorf("login with the new password: %d %v", resp.code, resp.body)
	}
}

type failingMailer struct{}

func (failingMailer) Send(context.Context, *mailer.Message) error {
	return status.Error(codes.Unavailable, "smtp down")
}

// resetClearFails fails the write which clears a reset token
type resetClearFails struct {
	database.Database
}

func (d resetClearFails) UpdateOne(ctx context.Context, table string, c database.C, doc database.M) (int, error) {
	if v, ok := doc["resetPasswordToken"]; ok && v == nil {
		return 0, status.Error(codes.Unavailable, "db down")
	}
	return d.Database.UpdateOne(ctx, table, c, doc)
}

func TestForgotPasswordMailFailure(t *testing.T) {
	a := newTestAPI(t)
	id, _ := a.user("jane", auth.RoleUser)
	a.srv.mailer = failingMailer{}
	resp := a.do(http.MethodPost, "/api/v1/auth/forgotpassword", "", map[string]any{"email": "jane@gmail.com"})
	if resp.code != http.StatusInternalServerError || errorOf(resp) != "Email could not be sent" {
		t.Fatalf("forgotpassword: %d %v", resp.code, resp.body)
	}
	user := a.find(Users, id)
	if _, ok := user["resetPasswordToken"]; ok {
		t.Errorf("reset token kept after a mail failure: %v", user)
	}

	a.srv.dep.DB = resetClearFails{Database: a.db}
	resp = a.do(http.MethodPost, "/api/v1/auth/forgotpassword", "", map[string]any{"email": "jane@gmail.com"})
	if resp.code != http.StatusInternalServerError || errorOf(resp) != "Email could not be sent" {
		t.Errorf("a failed cleanup must not change the answer: %d %v", resp.code, resp.body)
	}
	if user = a.find(Users, id); user["resetPasswordToken"] == nil {
		t.Errorf("expected the token to stay when the cleanup write fails: %v", user)
	}
}

func TestUnauthenticatedWrite(t *testing.T) {
	a := newTestAPI(t)
	_, token := a.user("owner", auth.RolePublisher)
	id := a.bootcamp(token, "Devworks Bootcamp")
	tests := []struct {
		method, path, token string
	}{
		{http.MethodPost, "/api/v1/bootcamps", ""},
		{http.MethodPut, "/api/v1/bootcamps/" + id, ""},
		{http.MethodPut, "/api/v1/bootcamps/" + id, "not-a-token"},
		{http.MethodDelete, "/api/v1/bootcamps/" + id, token + "x"},
		{http.MethodPost, "/api/v1/bootcamps/" + id + "/courses", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := a.do(tt.method, tt.path, tt.token, map[string]any{"name": "Changed", "title": "x"})
			if resp.code != http.StatusUnauthorized || errorOf(resp) != "Not authorized to access this route" {
				t.Errorf("%d %v", resp.code, resp.body)
			}
		})
	}
	if n := a.count(Bootcamps); n != 1 {
		t.Errorf("bootcamps = %d", n)
	}
	if n := a.count(Courses); n != 0 {
		t.Errorf("courses = %d", n)
	}
	if name := a.find(Bootcamps, id).String("name"); name != "Devworks Bootcamp" {
		t.Errorf("name = %s", name)
	}
}

func TestBootcamps(t *testing.T) {
	a := newTestAPI(t)
	ownerID, owner := a.user("owner", auth.RolePublisher)
	_, other := a.user("other", auth.RolePublisher)
	_, reader := a.user("reader", auth.RoleUser)
	_, admin := a.user("admin", auth.RoleAdmin)

	id := a.bootcamp(owner, "Devworks Bootcamp")
	doc := a.find(Bootcamps, id)
	if doc.String("slug") != "devworks-bootcamp" || doc.String("user") != ownerID || doc.String("photo") != "no-photo.jpg" {
		t.Errorf("bootcamp = %v", doc)
	}
	if doc["jobGuarantee"] != false || doc["housing"] != true {
		t.Errorf("bootcamp flags = %v", doc)
	}

	resp := a.do(http.MethodPost, "/api/v1/bootcamps", owner, map[string]any{"name": "Second"})
	if resp.code != http.StatusBadRequest {
		t.Errorf("invalid create: %d %v", resp.code, resp.body)
	}
	if !strings.Contains(errorOf(resp), "Please add a description") || !strings.Contains(errorOf(resp), "Please add an address") {
		t.Errorf("violations = %s", errorOf(resp))
	}
	resp = a.do(http.MethodPost, "/api/v1/bootcamps", owner, map[string]any{
		"name": "Second", "description": "d", "address": "a", "careers": []string{"Other"},
	})
	if errorOf(resp) != "The user with ID "+ownerID+" has already published a bootcamp" {
		t.Errorf("second bootcamp: %d %v", resp.code, resp.body)
	}
	resp = a.do(http.MethodPost, "/api/v1/bootcamps", reader, map[string]any{"name": "Mine"})
	if resp.code != http.StatusForbidden || errorOf(resp) != "User role user is not authorized to access this route" {
		t.Errorf("user create: %d %v", resp.code, resp.body)
	}

	resp = a.do(http.MethodPut, "/api/v1/bootcamps/"+id, other, map[string]any{"name": "Taken"})
	if resp.code != http.StatusForbidden || !strings.HasSuffix(errorOf(resp), "is not authorized to update this bootcamp") {
		t.Errorf("foreign update: %d %v", resp.code, resp.body)
	}
	resp = a.do(http.MethodPut, "/api/v1/bootcamps/"+id, owner, map[string]any{"name": "Devworks Academy", "website": "ftp://x"})
	if errorOf(resp) != "Please use a valid URL with HTTP or HTTPS" {
		t.Errorf("invalid update: %d %v", resp.code, resp.body)
	}
	resp = a.do(http.MethodPut, "/api/v1/bootcamps/"+id, admin, map[string]any{"name": "Devworks Academy"})
	if data, _ := resp.body["data"].(map[string]any); resp.code != 200 || data["slug"] != "devworks-academy" {
		t.Errorf("admin update: %d %v", resp.code, resp.body)
	}

	resp = a.do(http.MethodGet, "/api/v1/bootcamps/404", "", nil)
	if resp.code != http.StatusNotFound || errorOf(resp) != "Bootcamp not found with id of 404" {
		t.Errorf("missing bootcamp: %d %v", resp.code, resp.body)
	}
	resp = a.do(http.MethodGet, "/api/v1/bootcamps/"+id, "", nil)
	if data, _ := resp.body["data"].(map[string]any); resp.code != 200 || data["name"] != "Devworks Academy" {
		t.Errorf("get bootcamp: %d %v", resp.code, resp.body)
	}
}

func TestBootcampList(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()
	for i, cost := range []float64{8000, 10000, 12000} {
		doc := database.M{"name": "camp" + string(rune('a'+i)), "averageCost": cost, "careers": []string{"Business"}}
		stamp(doc)
		if err := a.db.InsertOne(ctx, Bootcamps, doc); err != nil {
			t.Fatal(err)
		}
		course := database.M{"title": "course", "bootcamp": doc.ID(), "tuition": cost}
		stamp(course)
		if err := a.db.InsertOne(ctx, Courses, course); err != nil {
			t.Fatal(err)
		}
	}
	resp := a.do(http.MethodGet, "/api/v1/bootcamps?averageCost[lte]=10000&select=name,averageCost&sort=-averageCost&limit=1", "", nil)
	if resp.code != http.StatusOK || resp.body["count"] != float64(1) {
		t.Fatalf("list: %d %v", resp.code, resp.body)
	}
	data := resp.body["data"].([]any)
	first := data[0].(map[string]any)
	if first["averageCost"] != float64(10000) || first["careers"] != nil {
		t.Errorf("first = %v", first)
	}
	if courses, _ := first["courses"].([]any); len(courses) != 1 {
		t.Errorf("populated courses = %v", first["courses"])
	}
	pagination := resp.body["pagination"].(map[string]any)
	if next, _ := pagination["next"].(map[string]any); next["page"] != float64(2) || pagination["previous"] != nil {
		t.Errorf("pagination = %v", pagination)
	}
	resp = a.do(http.MethodGet, "/api/v1/bootcamps?averageCost[$where]=1", "", nil)
	if resp.code != http.StatusBadRequest {
		t.Errorf("injected operator: %d %v", resp.code, resp.body)
	}
}

func TestCoursesAndAverageCost(t *testing.T) {
	a := newTestAPI(t)
	_, owner := a.user("owner", auth.RolePublisher)
	_, other := a.user("other", auth.RolePublisher)
	id := a.bootcamp(owner, "Devworks Bootcamp")
	course := func(title string, tuition float64) map[string]any {
		return map[string]any{"title": title, "description": "d", "weeks": 8, "tuition": tuition, "minimumSkill": "beginner"}
	}
	resp := a.do(http.MethodPost, "/api/v1/bootcamps/"+id+"/courses", other, course("Front End", 8000))
	if resp.code != http.StatusForbidden {
		t.Errorf("foreign course: %d %v", resp.code, resp.body)
	}
	resp = a.do(http.MethodPost, "/api/v1/bootcamps/404/courses", owner, course("Front End", 8000))
	if errorOf(resp) != "No bootcamp with the id of 404" {
		t.Errorf("missing bootcamp: %d %v", resp.code, resp.body)
	}
	resp = a.do(http.MethodPost, "/api/v1/bootcamps/"+id+"/courses", owner, map[string]any{"title": "x", "minimumSkill": "guru"})
	if resp.code != http.StatusBadRequest || !strings.Contains(errorOf(resp), "Please add a tuition cost") {
		t.Errorf("invalid course: %d %v", resp.code, resp.body)
	}

	resp = a.do(http.MethodPost, "/api/v1/bootcamps/"+id+"/courses", owner, course("Front End", 10000))
	if resp.code != http.StatusCreated {
		t.Fatalf("add course: %d %v", resp.code, resp.body)
	}
	if weeks := resp.body["data"].(map[string]any)["weeks"]; weeks != "8" {
		t.Errorf("weeks = %v", weeks)
	}
	second := a.do(http.MethodPost, "/api/v1/bootcamps/"+id+"/courses", owner, course("Back End", 12999))
	courseID := second.body["data"].(map[string]any)["_id"].(string)
	if cost := a.find(Bootcamps, id)["averageCost"]; cost != float64(11500) {
		t.Errorf("averageCost = %v", cost)
	}

	resp = a.do(http.MethodGet, "/api/v1/bootcamps/"+id+"/courses", "", nil)
	if resp.code != 200 || resp.body["count"] != float64(2) || resp.body["pagination"] != nil {
		t.Errorf("nested courses: %d %v", resp.code, resp.body)
	}
	resp = a.do(http.MethodGet, "/api/v1/courses/"+courseID, "", nil)
	bootcamp, _ := resp.body["data"].(map[string]any)["bootcamp"].(map[string]any)
	if bootcamp["name"] != "Devworks Bootcamp" || bootcamp["address"] != nil {
		t.Errorf("populated bootcamp = %v", bootcamp)
	}
	if resp = a.do(http.MethodGet, "/api/v1/courses/404", "", nil); errorOf(resp) != "No course with the id of 404" {
		t.Errorf("missing course: %d %v", resp.code, resp.body)
	}

	resp = a.do(http.MethodPut, "/api/v1/courses/"+courseID, other, map[string]any{"tuition": 1})
	if resp.code != http.StatusForbidden || !strings.HasSuffix(errorOf(resp), "is not authorized to update course "+courseID) {
		t.Errorf("foreign update: %d %v", resp.code, resp.body)
	}
	if resp = a.do(http.MethodPut, "/api/v1/courses/"+courseID, owner, map[string]any{"tuition": 20000}); resp.code != 200 {
		t.Errorf("update course: %d %v", resp.code, resp.body)
	}
	if cost := a.find(Bootcamps, id)["averageCost"]; cost != float64(15000) {
		t.Errorf("averageCost = %v", cost)
	}
	if resp = a.do(http.MethodDelete, "/api/v1/courses/"+courseID, owner, nil); resp.code != 200 {
		t.Errorf("delete course: %d %v", resp.code, resp.body)
	}
	if cost := a.find(Bootcamps, id)["averageCost"]; cost != float64(10000) {
		t.Errorf("averageCost = %v", cost)
	}
}

func TestReviewsAndAverageRating(t *testing.T) {
	a := newTestAPI(t)
	_, owner := a.user("owner", auth.RolePublisher)
	_, john := a.user("john", auth.RoleUser)
	_, jane := a.user("jane", auth.RoleUser)
	id := a.bootcamp(owner, "Devworks Bootcamp")
	review := func(rating float64) map[string]any {
		return map[string]any{"title": "Learned a ton", "text": "Great", "rating": rating}
	}
	path := "/api/v1/bootcamps/" + id + "/reviews"
	if resp := a.do(http.MethodPost, path, owner, review(8)); resp.code != http.StatusForbidden {
		t.Errorf("publisher review: %d %v", resp.code, resp.body)
	}
	for _, bad := range []float64{0, 11, 7.5} {
		if resp := a.do(http.MethodPost, path, john, review(bad)); errorOf(resp) != "Please add a rating between 1 and 10" {
			t.Errorf("rating %v: %d %v", bad, resp.code, resp.body)
		}
	}
	first := a.do(http.MethodPost, path, john, review(8))
	if first.code != http.StatusCreated {
		t.Fatalf("add review: %d %v", first.code, first.body)
	}
	if resp := a.do(http.MethodPost, path, john, review(9)); errorOf(resp) != "Duplicate field value entered" {
		t.Errorf("second review: %d %v", resp.code, resp.body)
	}
	second := a.do(http.MethodPost, path, jane, review(5))
	if rating := a.find(Bootcamps, id)["averageRating"]; rating != 6.5 {
		t.Errorf("averageRating = %v", rating)
	}
	secondID := second.body["data"].(map[string]any)["_id"].(string)
	if resp := a.do(http.MethodPut, "/api/v1/reviews/"+secondID, john, review(1)); resp.code != http.StatusForbidden {
		t.Errorf("foreign update: %d %v", resp.code, resp.body)
	}
	if resp := a.do(http.MethodPut, "/api/v1/reviews/"+secondID, jane, map[string]any{"rating": 10}); resp.code != 200 {
		t.Errorf("update review: %d %v", resp.code, resp.body)
	}
	if rating := a.find(Bootcamps, id)["averageRating"]; rating != float64(9) {
		t.Errorf("averageRating = %v", rating)
	}
	if resp := a.do(http.MethodGet, "/api/v1/reviews", "", nil); resp.code != 200 || resp.body["count"] != float64(2) {
		t.Errorf("reviews: %d %v", resp.code, resp.body)
	}
	for _, r := range []struct {
		id, token string
	}{{first.body["data"].(map[string]any)["_id"].(string), john}, {secondID, jane}} {
		if resp := a.do(http.MethodDelete, "/api/v1/reviews/"+r.id, r.token, nil); resp.code != 200 {
			t.Errorf("delete review: %d %v", resp.code, resp.body)
		}
	}
	if _, ok := a.find(Bootcamps, id)["averageRating"]; ok {
		t.Error("averageRating is kept without reviews")
	}
	if resp := a.do(http.MethodGet, "/api/v1/reviews/404", "", nil); errorOf(resp) != "No review with the id of 404" {
		t.Errorf("missing review: %d %v", resp.code, resp.body)
	}
}

func TestDeleteBootcampCascade(t *testing.T) {
	a := newTestAPI(t)
	_, owner := a.user("owner", auth.RolePublisher)
	_, john := a.user("john", auth.RoleUser)
	id := a.bootcamp(owner, "Devworks Bootcamp")
	a.do(http.MethodPost, "/api/v1/bootcamps/"+id+"/courses", owner,
		map[string]any{"title": "t", "description": "d", "weeks": "4", "tuition": 100, "minimumSkill": "advanced"})
	a.do(http.MethodPost, "/api/v1/bootcamps/"+id+"/reviews", john, map[string]any{"title": "t", "text": "x", "rating": 3})
	if a.count(Courses) != 1 || a.count(Reviews) != 1 {
		t.Fatalf("courses %d reviews %d", a.count(Courses), a.count(Reviews))
	}
	if resp := a.do(http.MethodDelete, "/api/v1/bootcamps/"+id, owner, nil); resp.code != 200 {
		t.Fatalf("delete: %d %v", resp.code, resp.body)
	}
	if a.count(Bootcamps) != 0 || a.count(Courses) != 0 || a.count(Reviews) != 0 {
		t.Errorf("left bootcamps %d courses %d reviews %d", a.count(Bootcamps), a.count(Courses), a.count(Reviews))
	}
}

func TestPhotoUpload(t *testing.T) {
	a := newTestAPI(t)
	_, owner := a.user("owner", auth.RolePublisher)
	id := a.bootcamp(owner, "Devworks Bootcamp")
	upload := func(contentType string, size int) *response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="camp.png"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(bytes.Repeat([]byte{1}, size))
		_ = w.Close()
		req := httptest.NewRequest(http.MethodPut, "/api/v1/bootcamps/"+id+"/photo", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return a.send(req, owner)
	}
	if resp := upload("text/plain", 10); errorOf(resp) != "Please upload an image file" {
		t.Errorf("text upload: %d %v", resp.code, resp.body)
	}
	if resp := upload("image/png", 1<<17); resp.code != http.StatusBadRequest {
		t.Errorf("large upload: %d %v", resp.code, resp.body)
	}
	resp := upload("image/png", 100)
	if resp.code != http.StatusOK || resp.body["data"] != "photo_"+id+".png" {
		t.Fatalf("upload: %d %v", resp.code, resp.body)
	}
	if _, err := os.Stat(filepath.Join(a.uploads, "photo_"+id+".png")); err != nil {
		t.Error(err)
	}
	if photo := a.find(Bootcamps, id).String("photo"); photo != "photo_"+id+".png" {
		t.Errorf("photo = %s", photo)
	}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/bootcamps/"+id+"/photo", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if resp = a.send(req, owner); errorOf(resp) != "Please upload a file" {
		t.Errorf("no file: %d %v", resp.code, resp.body)
	}
}

func TestUsers(t *testing.T) {
	a := newTestAPI(t)
	_, reader := a.user("reader", auth.RoleUser)
	_, admin := a.user("admin", auth.RoleAdmin)
	if resp := a.do(http.MethodGet, "/api/v1/users", reader, nil); resp.code != http.StatusForbidden {
		t.Errorf("user list: %d %v", resp.code, resp.body)
	}
	resp := a.do(http.MethodPost, "/api/v1/users", admin, map[string]any{
		"name": "Root", "email": "root@gmail.com", "password": "123456", "role": "admin",
	})
	if resp.code != http.StatusCreated {
		t.Fatalf("create user: %d %v", resp.code, resp.body)
	}
	id := resp.body["data"].(map[string]any)["_id"].(string)
	resp = a.do(http.MethodGet, "/api/v1/users?role=admin&access_token="+admin, admin, nil)
	if resp.code != 200 || resp.body["count"] != float64(2) {
		t.Fatalf("users: %d %v", resp.code, resp.body)
	}
	for _, u := range resp.body["data"].([]any) {
		if _, ok := u.(map[string]any)["password"]; ok {
			t.Error("the password hash is listed")
		}
	}
	if resp = a.do(http.MethodGet, "/api/v1/users?password[gt]=a", admin, nil); resp.code != http.StatusBadRequest {
		t.Errorf("hidden filter: %d %v", resp.code, resp.body)
	}
	if resp = a.do(http.MethodPut, "/api/v1/users/"+id, admin, map[string]any{"name": "Groot"}); resp.code != 200 {
		t.Errorf("update user: %d %v", resp.code, resp.body)
	}
	if resp = a.do(http.MethodDelete, "/api/v1/users/"+id, admin, nil); resp.code != 200 {
		t.Errorf("delete user: %d %v", resp.code, resp.body)
	}
	if resp = a.do(http.MethodGet, "/api/v1/users/"+id, admin, nil); resp.code != http.StatusNotFound {
		t.Errorf("deleted user: %d %v", resp.code, resp.body)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Devworks Bootcamp":      "devworks-bootcamp",
		"  ModernTech -- Camp! ": "moderntech-camp",
		"Codemasters 2.0":        "codemasters-2-0",
	}
	for in, want := range tests {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
