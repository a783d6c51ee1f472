package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/saba2003/devcamper-api/auth"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/log"
	"github.com/saba2003/devcamper-api/mailer"
	"github.com/saba2003/devcamper-api/restmux/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errInvalidCredentials = status.Error(codes.Unauthenticated, "Invalid credentials")

type tokenBody struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// sendToken issue a token for the user, set it as cookie and return it
func (s *Server) sendToken(w http.ResponseWriter, r *http.Request, user database.M, code int) error {
	token, err := s.gate.Identity().Issue(r.Context(), auth.PrincipalOf(user))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(s.cfg.JWT.CookieExpire) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   s.cfg.Env == "production",
	})
	return mux.WriteJSON(w, code, &tokenBody{Success: true, Token: token})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	var in userInput
	if err := mux.Decode(r, &in); err != nil {
		return err
	}
	if err := in.validate(true, false); err != nil {
		return err
	}
	doc, err := in.doc(true)
	if err != nil {
		return err
	}
	if err = s.dep.DB.InsertOne(r.Context(), Users, doc); err != nil {
		return err
	}
	return s.sendToken(w, r, doc, http.StatusOK)
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	var in loginInput
	if err := mux.Decode(r, &in); err != nil {
		return err
	}
	if in.Email == "" || in.Password == "" {
		return status.Error(codes.InvalidArgument, "Please provide an email and password")
	}
	user, err := s.dep.DB.FindOne(r.Context(), Users, database.C{{Key: "email", Value: strings.TrimSpace(in.Email)}})
	if status.Code(err) == codes.NotFound {
		return errInvalidCredentials
	}
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.String("password"), in.Password) {
		return errInvalidCredentials
	}
	return s.sendToken(w, r, user, http.StatusOK)
}

// logout clear the cookie and revoke the token when revocation is configured
func (s *Server) logout(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	if err := s.gate.Revoke(r.Context()); err != nil {
		log.Extract(r.Context()).Action("service.logout").Warn("revoke token: %v", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "none",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
	})
	return writeData(w, http.StatusOK, empty)
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	doc, err := s.findUser(r, auth.PrincipalFrom(r.Context()).ID)
	if err != nil {
		return err
	}
	return writeData(w, http.StatusOK, publicUser(doc))
}

type detailsInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (s *Server) updateDetails(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	ctx := r.Context()
	id := auth.PrincipalFrom(ctx).ID
	var in detailsInput
	if err := mux.Decode(r, &in); err != nil {
		return err
	}
	user := userInput{Name: in.Name, Email: in.Email}
	if err := user.validate(false, false); err != nil {
		return err
	}
	update, err := user.doc(false)
	if err != nil {
		return err
	}
	if len(update) > 0 {
		if _, err = s.dep.DB.UpdateOne(ctx, Users, database.ByID(id), update); err != nil {
			return err
		}
		s.gate.Invalidate(ctx, id)
	}
	return s.getMe(w, r, nil)
}

type passwordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) updatePassword(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	ctx := r.Context()
	var in passwordInput
	if err := mux.Decode(r, &in); err != nil {
		return err
	}
	user, err := s.findUser(r, auth.PrincipalFrom(ctx).ID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.String("password"), in.CurrentPassword) {
		return status.Error(codes.Unauthenticated, "Password is incorrect")
	}
	if err = s.setPassword(ctx, user, in.NewPassword, nil); err != nil {
		return err
	}
	return s.sendToken(w, r, user, http.StatusOK)
}

// setPassword validate and store a new password, extra fields are updated too
func (s *Server) setPassword(ctx context.Context, user database.M, password string, extra database.M) error {
	in := userInput{Password: &password}
	if err := in.validate(false, false); err != nil {
		return err
	}
	update, err := in.doc(false)
	if err != nil {
		return err
	}
	for k, v := range extra {
		update[k] = v
	}
	_, err = s.dep.DB.UpdateOne(ctx, Users, database.ByID(user.ID()), update)
	return err
}

type forgotInput struct {
	Email string `json:"email"`
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	ctx := r.Context()
	var in forgotInput
	if err := mux.Decode(r, &in); err != nil {
		return err
	}
	user, err := s.dep.DB.FindOne(ctx, Users, database.C{{Key: "email", Value: strings.TrimSpace(in.Email)}})
	if status.Code(err) == codes.NotFound || (err == nil && in.Email == "") {
		return status.Error(codes.NotFound, "There is no user with that email")
	}
	if err != nil {
		return err
	}
	token, hash, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	byID := database.ByID(user.ID())
	if _, err = s.dep.DB.UpdateOne(ctx, Users, byID, database.M{
		"resetPasswordToken":  hash,
		"resetPasswordExpire": now().Add(auth.ResetTokenTTL),
	}); err != nil {
		return err
	}
	resetURL := s.baseURL(r) + "/api/v1/auth/resetpassword/" + token
	err = s.mailer.Send(ctx, &mailer.Message{
		To:      user.String("email"),
		Subject: "Password reset token",
		Text: fmt.Sprintf("You are receiving this email because you (or someone else) has requested "+
			"the reset of a password. Please make a PUT request to: \n\n %s", resetURL),
	})
	if err != nil {
		logger := log.Extract(ctx).Action("service.forgotPassword")
		logger.Error("send reset mail: %v", err)
		reset := database.M{"resetPasswordToken": nil, "resetPasswordExpire": nil}
		if _, cerr := s.dep.DB.UpdateOne(ctx, Users, byID, reset); cerr != nil {
			logger.Error("clear reset token of %s: %v", user.ID(), cerr)
		}
		return mux.PublicError(codes.Internal, "Email could not be sent")
	}
	return writeData(w, http.StatusOK, "Email sent")
}

func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

type resetInput struct {
	Password string `json:"password"`
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	ctx := r.Context()
	user, err := s.dep.DB.FindOne(ctx, Users, database.C{
		{Key: "resetPasswordToken", Value: auth.HashResetToken(params["resettoken"])},
		{Key: "resetPasswordExpire", C: database.Gt, Value: now()},
	})
	if status.Code(err) == codes.NotFound {
		return status.Error(codes.InvalidArgument, "Invalid token")
	}
	if err != nil {
		return err
	}
	var in resetInput
	if err = mux.Decode(r, &in); err != nil {
		return err
	}
	err = s.setPassword(ctx, user, in.Password, database.M{"resetPasswordToken": nil, "resetPasswordExpire": nil})
	if err != nil {
		return err
	}
	return s.sendToken(w, r, user, http.StatusOK)
}
