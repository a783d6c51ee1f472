package service

import (
	"net/http"

	"github.com/saba2003/devcamper-api/auth"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/dependencies/database/query"
	"github.com/saba2003/devcamper-api/restmux/mux"
)

var reviewCollection = query.Collection{
	Name:     Reviews,
	Populate: []database.Populate{bootcampSummary},
}

func (s *Server) getReviews(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	if id := params["bootcampId"]; id != "" {
		return s.children(w, r, Reviews, id)
	}
	env, err := s.processor.Run(r.Context(), reviewCollection, listValues(r))
	if err != nil {
		return err
	}
	return mux.WriteJSON(w, http.StatusOK, env)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	id := params["id"]
	doc, err := s.findOne(r, Reviews, id, "No review with the id of "+id)
	if err != nil {
		return err
	}
	return writeData(w, http.StatusOK, doc)
}

// addReview a second review of the same user is rejected by the unique index
func (s *Server) addReview(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	bootcampID := params["bootcampId"]
	if _, err := s.findBootcamp(r, bootcampID, "No bootcamp with the id of "+bootcampID); err != nil {
		return err
	}
	var in reviewInput
	if err := mux.Decode(r, &in); err != nil {
		return err
	}
	if err := in.validate(true); err != nil {
		return err
	}
	doc := in.doc(true)
	doc["bootcamp"] = bootcampID
	doc["user"] = auth.PrincipalFrom(ctx).ID
	if err := s.dep.DB.InsertOne(ctx, Reviews, doc); err != nil {
		return err
	}
	s.recompute(ctx, "averageRating", s.RecomputeAverageRating, bootcampID)
	return writeData(w, http.StatusCreated, doc)
}

func (s *Server) updateReview(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	id := params["id"]
	doc, err := s.ownedDoc(r, Reviews, id, "review", "update")
	if err != nil {
		return err
	}
	var in reviewInput
	if err = mux.Decode(r, &in); err != nil {
		return err
	}
	if err = in.validate(false); err != nil {
		return err
	}
	if update := in.doc(false); len(update) > 0 {
		if _, err = s.dep.DB.UpdateOne(ctx, Reviews, database.ByID(id), update); err != nil {
			return err
		}
		s.recompute(ctx, "averageRating", s.RecomputeAverageRating, doc.String("bootcamp"))
	}
	if doc, err = s.dep.DB.FindOne(ctx, Reviews, database.ByID(id)); err != nil {
		return err
	}
	return writeData(w, http.StatusOK, doc)
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	id := params["id"]
	doc, err := s.ownedDoc(r, Reviews, id, "review", "delete")
	if err != nil {
		return err
	}
	if _, err = s.dep.DB.DeleteOne(ctx, Reviews, database.ByID(id)); err != nil {
		return err
	}
	s.recompute(ctx, "averageRating", s.RecomputeAverageRating, doc.String("bootcamp"))
	return writeData(w, http.StatusOK, empty)
}
