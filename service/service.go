// Package service the rest handlers of the devcamper api.
package service

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/saba2003/devcamper-api/auth"
	"github.com/saba2003/devcamper-api/dependencies"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/dependencies/database/query"
	"github.com/saba2003/devcamper-api/dependencies/mqlru"
	"github.com/saba2003/devcamper-api/dependencies/redis"
	"github.com/saba2003/devcamper-api/dependencies/storage"
	"github.com/saba2003/devcamper-api/mailer"
	"github.com/saba2003/devcamper-api/restmux/mux"
)

// the collections
const (
	Bootcamps = "bootcamps"
	Courses   = "courses"
	Reviews   = "reviews"
	Users     = "users"
)

// Dependencies the external services of the api
type Dependencies struct {
	dependencies.Dependency
	DB      database.Database
	Redis   *redis.Redis   `required:"false"`
	Cache   *mqlru.Lru     `required:"false"`
	Storage *storage.Store `required:"false"`
	Mail    *mailer.Mail   `required:"false"`
}

// Config the settings of the handlers
type Config struct {
	Env    string       `yaml:"env" env:"NODE_ENV"`
	JWT    JWTConfig    `yaml:"jwt"`
	Upload UploadConfig `yaml:"upload"`
	Query  QueryConfig  `yaml:"query"`
	// PublicURL the base of the links in mails, the request host when empty
	PublicURL string `yaml:"publicURL" env:"PUBLIC_URL"`
}

// JWTConfig the token settings
type JWTConfig struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET"`
	Expire time.Duration `yaml:"expire" env:"JWT_EXPIRE"`
	// CookieExpire days of the token cookie
	CookieExpire int `yaml:"cookieExpire" env:"JWT_COOKIE_EXPIRE"`
}

// UploadConfig the photo upload settings
type UploadConfig struct {
	MaxSize int64 `yaml:"maxSize" env:"MAX_FILE_UPLOAD"`
	// Path the directory used when no storage dependency is configured
	Path string `yaml:"path" env:"FILE_UPLOAD_PATH"`
}

// QueryConfig the list endpoint settings
type QueryConfig struct {
	DefaultLimit int           `yaml:"defaultLimit"`
	MaxLimit     int           `yaml:"maxLimit"`
	CountMode    string        `yaml:"countMode"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Server the handlers
type Server struct {
	dep       *Dependencies
	cfg       *Config
	gate      *auth.Gate
	processor *query.Processor
	storage   storage.Storage
	mailer    mailer.Mailer
}

// New the handlers on dep, the indexes of every collection are ensured.
func New(ctx context.Context, dep *Dependencies, cfg *Config) (*Server, error) {
	var revoker auth.Revoker
	if dep.Redis != nil {
		revoker = &auth.RedisRevoker{Redis: dep.Redis}
	}
	identity, err := auth.NewJWT(cfg.JWT.Secret, cfg.JWT.Expire, revoker)
	if err != nil {
		return nil, err
	}
	if cfg.Upload.MaxSize <= 0 {
		cfg.Upload.MaxSize = 1000000
	}
	if cfg.JWT.CookieExpire <= 0 {
		cfg.JWT.CookieExpire = 30
	}
	s := &Server{
		dep:       dep,
		cfg:       cfg,
		gate:      auth.NewGate(identity, dep.DB, Users, dep.Cache),
		processor: query.New(dep.DB, queryOptions(cfg.Query)...),
		mailer:    &mailer.Log{},
	}
	if dep.Mail != nil {
		s.mailer = dep.Mail
	}
	if dep.Storage != nil {
		s.storage = dep.Storage
	} else {
		path := cfg.Upload.Path
		if path == "" {
			path = "./public/uploads"
		}
		if s.storage, err = storage.NewFile(path); err != nil {
			return nil, err
		}
	}
	return s, s.ensureIndexes(ctx)
}

func queryOptions(c QueryConfig) []query.Option {
	opts := []query.Option{query.WithDefaultSort("-createdAt")}
	if c.DefaultLimit > 0 {
		opts = append(opts, query.WithDefaultLimit(c.DefaultLimit))
	}
	if c.MaxLimit > 0 {
		opts = append(opts, query.WithMaxLimit(c.MaxLimit))
	}
	if c.CountMode != "" {
		opts = append(opts, query.WithCountMode(query.CountMode(c.CountMode)))
	}
	if c.Timeout > 0 {
		opts = append(opts, query.WithTimeout(c.Timeout))
	}
	return opts
}

func (s *Server) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]*database.Index{
		Bootcamps: {{Keys: []string{"name"}, Unique: true}, {Keys: []string{"user"}}},
		Courses:   {{Keys: []string{"bootcamp"}}},
		Reviews:   {{Keys: []string{"bootcamp", "user"}, Unique: true}},
		Users:     {{Keys: []string{"email"}, Unique: true}},
	}
	for table, idx := range indexes {
		if err := s.dep.DB.EnsureIndex(ctx, table, idx...); err != nil {
			return err
		}
	}
	return nil
}

// Router where the handlers are registered, restmux.Server and mux.ServeMux.
type Router interface {
	Handle(method, path string, h mux.HandlerFunc)
}

// Register every route of the api
func (s *Server) Register(r Router) {
	const v1 = "/api/v1"
	private := s.gate.Protect
	role := func(h mux.HandlerFunc, roles ...string) mux.HandlerFunc {
		return s.gate.Protect(s.gate.Authorize(roles...)(h))
	}
	publisher := []string{auth.RolePublisher, auth.RoleAdmin}

	r.Handle(http.MethodGet, v1+"/bootcamps", s.getBootcamps)
	r.Handle(http.MethodPost, v1+"/bootcamps", role(s.createBootcamp, publisher...))
	r.Handle(http.MethodGet, v1+"/bootcamps/{id}", s.getBootcamp)
	r.Handle(http.MethodPut, v1+"/bootcamps/{id}", role(s.updateBootcamp, publisher...))
	r.Handle(http.MethodDelete, v1+"/bootcamps/{id}", role(s.deleteBootcamp, publisher...))
	r.Handle(http.MethodPut, v1+"/bootcamps/{id}/photo", role(s.bootcampPhotoUpload, publisher...))

	r.Handle(http.MethodGet, v1+"/courses", s.getCourses)
	r.Handle(http.MethodGet, v1+"/bootcamps/{bootcampId}/courses", s.getCourses)
	r.Handle(http.MethodPost, v1+"/bootcamps/{bootcampId}/courses", role(s.addCourse, publisher...))
	r.Handle(http.MethodGet, v1+"/courses/{id}", s.getCourse)
	r.Handle(http.MethodPut, v1+"/courses/{id}", role(s.updateCourse, publisher...))
	r.Handle(http.MethodDelete, v1+"/courses/{id}", role(s.deleteCourse, publisher...))

	r.Handle(http.MethodGet, v1+"/reviews", s.getReviews)
	r.Handle(http.MethodGet, v1+"/bootcamps/{bootcampId}/reviews", s.getReviews)
	r.Handle(http.MethodPost, v1+"/bootcamps/{bootcampId}/reviews", role(s.addReview, auth.RoleUser, auth.RoleAdmin))
	r.Handle(http.MethodGet, v1+"/reviews/{id}", s.getReview)
	r.Handle(http.MethodPut, v1+"/reviews/{id}", role(s.updateReview, auth.RoleUser, auth.RoleAdmin))
	r.Handle(http.MethodDelete, v1+"/reviews/{id}", role(s.deleteReview, auth.RoleUser, auth.RoleAdmin))

	r.Handle(http.MethodGet, v1+"/users", role(s.getUsers, auth.RoleAdmin))
	r.Handle(http.MethodPost, v1+"/users", role(s.createUser, auth.RoleAdmin))
	r.Handle(http.MethodGet, v1+"/users/{id}", role(s.getUser, auth.RoleAdmin))
	r.Handle(http.MethodPut, v1+"/users/{id}", role(s.updateUser, auth.RoleAdmin))
	r.Handle(http.MethodDelete, v1+"/users/{id}", role(s.deleteUser, auth.RoleAdmin))

	r.Handle(http.MethodPost, v1+"/auth/register", s.register)
	r.Handle(http.MethodPost, v1+"/auth/login", s.login)
	r.Handle(http.MethodGet, v1+"/auth/logout", private(s.logout))
	r.Handle(http.MethodGet, v1+"/auth/me", private(s.getMe))
	r.Handle(http.MethodPut, v1+"/auth/updatedetails", private(s.updateDetails))
	r.Handle(http.MethodPut, v1+"/auth/updatepassword", private(s.updatePassword))
	r.Handle(http.MethodPost, v1+"/auth/forgotpassword", s.forgotPassword)
	r.Handle(http.MethodPut, v1+"/auth/resetpassword/{resettoken}", s.resetPassword)
}

type dataBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type listBody struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Data    []database.M `json:"data"`
}

func writeData(w http.ResponseWriter, code int, data any) error {
	return mux.WriteJSON(w, code, &dataBody{Success: true, Data: data})
}

func writeList(w http.ResponseWriter, docs []database.M) error {
	if docs == nil {
		docs = []database.M{}
	}
	return mux.WriteJSON(w, http.StatusOK, &listBody{Success: true, Count: len(docs), Data: docs})
}

// empty the data of delete responses
var empty = struct{}{}

// listValues the query of r without the credential parameter
func listValues(r *http.Request) url.Values {
	values := r.URL.Query()
	values.Del("access_token")
	return values
}

func now() time.Time {
	return time.Now().UTC()
}
