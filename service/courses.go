package service

import (
	"net/http"

	"github.com/saba2003/devcamper-api/auth"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/dependencies/database/query"
	"github.com/saba2003/devcamper-api/restmux/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// bootcampSummary the populated parent of courses and reviews
var bootcampSummary = database.Populate{
	Path:       "bootcamp",
	Collection: Bootcamps,
	Select:     []string{"name", "description"},
}

var courseCollection = query.Collection{
	Name:     Courses,
	Populate: []database.Populate{bootcampSummary},
}

// children the unpaginated documents of a bootcamp
func (s *Server) children(w http.ResponseWriter, r *http.Request, table, bootcampID string) error {
	docs, err := s.dep.DB.Find(r.Context(), table, database.NewQuery(database.C{{Key: "bootcamp", Value: bootcampID}}))
	if err != nil {
		return err
	}
	return writeList(w, docs)
}

// findOne the document by id with its bootcamp summary
func (s *Server) findOne(r *http.Request, table, id, notFound string) (database.M, error) {
	q := database.NewQuery(database.ByID(id)).Limit(1).Populate(bootcampSummary)
	docs, err := database.Execute(r.Context(), s.dep.DB, table, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, status.Error(codes.NotFound, notFound)
	}
	return docs[0], nil
}

func (s *Server) getCourses(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	if id := params["bootcampId"]; id != "" {
		return s.children(w, r, Courses, id)
	}
	env, err := s.processor.Run(r.Context(), courseCollection, listValues(r))
	if err != nil {
		return err
	}
	return mux.WriteJSON(w, http.StatusOK, env)
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	id := params["id"]
	doc, err := s.findOne(r, Courses, id, "No course with the id of "+id)
	if err != nil {
		return err
	}
	return writeData(w, http.StatusOK, doc)
}

func (s *Server) addCourse(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	bootcampID := params["bootcampId"]
	bootcamp, err := s.findBootcamp(r, bootcampID, "No bootcamp with the id of "+bootcampID)
	if err != nil {
		return err
	}
	p := auth.PrincipalFrom(ctx)
	msg := "User " + p.ID + " is not authorized to add a course to bootcamp " + bootcampID
	if err = auth.CheckOwner(p, bootcamp.String("user"), msg); err != nil {
		return err
	}
	var in courseInput
	if err = mux.Decode(r, &in); err != nil {
		return err
	}
	if err = in.validate(true); err != nil {
		return err
	}
	doc := in.doc(true)
	doc["bootcamp"] = bootcampID
	doc["user"] = p.ID
	if err = s.dep.DB.InsertOne(ctx, Courses, doc); err != nil {
		return err
	}
	s.recompute(ctx, "averageCost", s.RecomputeAverageCost, bootcampID)
	return writeData(w, http.StatusCreated, doc)
}

// ownedDoc the document of id which the principal may change
func (s *Server) ownedDoc(r *http.Request, table, id, kind, verb string) (database.M, error) {
	doc, err := s.dep.DB.FindOne(r.Context(), table, database.ByID(id))
	if status.Code(err) == codes.NotFound {
		return nil, status.Errorf(codes.NotFound, "No %s with the id of %s", kind, id)
	}
	if err != nil {
		return nil, err
	}
	p := auth.PrincipalFrom(r.Context())
	msg := "User " + p.ID + " is not authorized to " + verb + " " + kind + " " + id
	if err = auth.CheckOwner(p, doc.String("user"), msg); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Server) updateCourse(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	id := params["id"]
	doc, err := s.ownedDoc(r, Courses, id, "course", "update")
	if err != nil {
		return err
	}
	var in courseInput
	if err = mux.Decode(r, &in); err != nil {
		return err
	}
	if err = in.validate(false); err != nil {
		return err
	}
	if update := in.doc(false); len(update) > 0 {
		if _, err = s.dep.DB.UpdateOne(ctx, Courses, database.ByID(id), update); err != nil {
			return err
		}
		s.recompute(ctx, "averageCost", s.RecomputeAverageCost, doc.String("bootcamp"))
	}
	if doc, err = s.dep.DB.FindOne(ctx, Courses, database.ByID(id)); err != nil {
		return err
	}
	return writeData(w, http.StatusOK, doc)
}

func (s *Server) deleteCourse(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	id := params["id"]
	doc, err := s.ownedDoc(r, Courses, id, "course", "delete")
	if err != nil {
		return err
	}
	if _, err = s.dep.DB.DeleteOne(ctx, Courses, database.ByID(id)); err != nil {
		return err
	}
	s.recompute(ctx, "averageCost", s.RecomputeAverageCost, doc.String("bootcamp"))
	return writeData(w, http.StatusOK, empty)
}
