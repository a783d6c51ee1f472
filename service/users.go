package service

import (
	"net/http"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/dependencies/database/query"
	"github.com/saba2003/devcamper-api/restmux/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var userCollection = query.Collection{
	Name:   Users,
	Hidden: hiddenUserFields,
}

func (s *Server) findUser(r *http.Request, id string) (database.M, error) {
	doc, err := s.dep.DB.FindOne(r.Context(), Users, database.ByID(id))
	if status.Code(err) == codes.NotFound {
		return nil, status.Errorf(codes.NotFound, "No user with the id of %s", id)
	}
	return doc, err
}

func (s *Server) getUsers(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	env, err := s.processor.Run(r.Context(), userCollection, listValues(r))
	if err != nil {
		return err
	}
	return mux.WriteJSON(w, http.StatusOK, env)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	doc, err := s.findUser(r, params["id"])
	if err != nil {
		return err
	}
	return writeData(w, http.StatusOK, publicUser(doc))
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	var in userInput
	if err := mux.Decode(r, &in); err != nil {
		return err
	}
	if err := in.validate(true, true); err != nil {
		return err
	}
	doc, err := in.doc(true)
	if err != nil {
		return err
	}
	if err = s.dep.DB.InsertOne(r.Context(), Users, doc); err != nil {
		return err
	}
	return writeData(w, http.StatusCreated, publicUser(doc))
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	id := params["id"]
	if _, err := s.findUser(r, id); err != nil {
		return err
	}
	var in userInput
	if err := mux.Decode(r, &in); err != nil {
		return err
	}
	if err := in.validate(false, true); err != nil {
		return err
	}
	update, err := in.doc(false)
	if err != nil {
		return err
	}
	if len(update) > 0 {
		if _, err = s.dep.DB.UpdateOne(ctx, Users, database.ByID(id), update); err != nil {
			return err
		}
		s.gate.Invalidate(ctx, id)
	}
	doc, err := s.findUser(r, id)
	if err != nil {
		return err
	}
	return writeData(w, http.StatusOK, publicUser(doc))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	id := params["id"]
	if _, err := s.dep.DB.DeleteOne(ctx, Users, database.ByID(id)); err != nil {
		return err
	}
	s.gate.Invalidate(ctx, id)
	return writeData(w, http.StatusOK, empty)
}
