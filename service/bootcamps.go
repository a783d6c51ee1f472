package service

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/saba2003/devcamper-api/auth"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/dependencies/database/query"
	"github.com/saba2003/devcamper-api/log"
	"github.com/saba2003/devcamper-api/restmux/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var bootcampCollection = query.Collection{
	Name: Bootcamps,
	Populate: []database.Populate{{
		Path:         "courses",
		Collection:   Courses,
		ForeignField: "bootcamp",
	}},
}

func (s *Server) getBootcamps(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	env, err := s.processor.Run(r.Context(), bootcampCollection, listValues(r))
	if err != nil {
		return err
	}
	return mux.WriteJSON(w, http.StatusOK, env)
}

// findBootcamp the bootcamp or NotFound with msg
func (s *Server) findBootcamp(r *http.Request, id, msg string) (database.M, error) {
	doc, err := s.dep.DB.FindOne(r.Context(), Bootcamps, database.ByID(id))
	if status.Code(err) == codes.NotFound {
		return nil, status.Error(codes.NotFound, msg)
	}
	return doc, err
}

func (s *Server) getBootcamp(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	id := params["id"]
	doc, err := s.findBootcamp(r, id, "Bootcamp not found with id of "+id)
	if err != nil {
		return err
	}
	return writeData(w, http.StatusOK, doc)
}

func (s *Server) createBootcamp(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	ctx := r.Context()
	p := auth.PrincipalFrom(ctx)
	var in bootcampInput
	if err := mux.Decode(r, &in); err != nil {
		return err
	}
	if err := in.validate(true); err != nil {
		return err
	}
	if !p.IsAdmin() {
		n, err := s.dep.DB.Count(ctx, Bootcamps, database.C{{Key: "user", Value: p.ID}})
		if err != nil {
			return err
		}
		if n > 0 {
			return status.Errorf(codes.InvalidArgument, "The user with ID %s has already published a bootcamp", p.ID)
		}
	}
	doc := in.doc(true)
	doc["user"] = p.ID
	if err := s.dep.DB.InsertOne(ctx, Bootcamps, doc); err != nil {
		return err
	}
	return writeData(w, http.StatusCreated, doc)
}

func (s *Server) updateBootcamp(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	id := params["id"]
	doc, err := s.findBootcamp(r, id, "Bootcamp not found with id of "+id)
	if err != nil {
		return err
	}
	p := auth.PrincipalFrom(ctx)
	if err = auth.CheckOwner(p, doc.String("user"), "User "+p.ID+" is not authorized to update this bootcamp"); err != nil {
		return err
	}
	var in bootcampInput
	if err = mux.Decode(r, &in); err != nil {
		return err
	}
	if err = in.validate(false); err != nil {
		return err
	}
	if update := in.doc(false); len(update) > 0 {
		if _, err = s.dep.DB.UpdateOne(ctx, Bootcamps, database.ByID(id), update); err != nil {
			return err
		}
	}
	if doc, err = s.dep.DB.FindOne(ctx, Bootcamps, database.ByID(id)); err != nil {
		return err
	}
	return writeData(w, http.StatusOK, doc)
}

// deleteBootcamp remove the courses and reviews of the bootcamp first
func (s *Server) deleteBootcamp(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	id := params["id"]
	doc, err := s.findBootcamp(r, id, "Bootcamp not found with id of "+id)
	if err != nil {
		return err
	}
	p := auth.PrincipalFrom(ctx)
	if err = auth.CheckOwner(p, doc.String("user"), "User "+p.ID+" is not authorized to delete this bootcamp"); err != nil {
		return err
	}
	children := database.C{{Key: "bootcamp", Value: id}}
	courses, err := s.dep.DB.Delete(ctx, Courses, children)
	if err != nil {
		return err
	}
	reviews, err := s.dep.DB.Delete(ctx, Reviews, children)
	if err != nil {
		return err
	}
	if _, err = s.dep.DB.DeleteOne(ctx, Bootcamps, database.ByID(id)); err != nil {
		return err
	}
	log.Extract(ctx).With(map[string]any{
		"action":   "service.deleteBootcamp",
		"bootcamp": id,
		"courses":  courses,
		"reviews":  reviews,
	}).Info("bootcamp deleted")
	return writeData(w, http.StatusOK, empty)
}

func (s *Server) bootcampPhotoUpload(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	id := params["id"]
	doc, err := s.findBootcamp(r, id, "Bootcamp not found with id of "+id)
	if err != nil {
		return err
	}
	p := auth.PrincipalFrom(ctx)
	if err = auth.CheckOwner(p, doc.String("user"), "User "+p.ID+" is not authorized to update this bootcamp"); err != nil {
		return err
	}
	limit := s.cfg.Upload.MaxSize
	tooLarge := status.Errorf(codes.InvalidArgument, "Please upload an image less than %s", strconv.FormatInt(limit, 10))
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err = r.ParseMultipartForm(limit); err != nil {
		if strings.Contains(err.Error(), "too large") {
			return tooLarge
		}
		return status.Error(codes.InvalidArgument, "Please upload a file")
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()
	file, header, err := r.FormFile("file")
	if err != nil {
		return status.Error(codes.InvalidArgument, "Please upload a file")
	}
	defer file.Close()
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return status.Error(codes.InvalidArgument, "Please upload an image file")
	}
	if header.Size > limit {
		return tooLarge
	}
	name := "photo_" + id + filepath.Ext(header.Filename)
	if name, err = s.storage.Put(ctx, name, file, header.Size, contentType); err != nil {
		return err
	}
	if _, err = s.dep.DB.UpdateOne(ctx, Bootcamps, database.ByID(id), database.M{"photo": name}); err != nil {
		return err
	}
	return writeData(w, http.StatusOK, name)
}
