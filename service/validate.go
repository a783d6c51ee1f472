package service

import (
	"bytes"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// violations the failed checks of one input, reported together
type violations []string

func (v *violations) check(ok bool, msg string) {
	if !ok {
		*v = append(*v, msg)
	}
}

// required check a field which is mandatory on create
func (v *violations) required(create bool, s *string, msg string) {
	if s == nil {
		v.check(!create, msg)
		return
	}
	v.check(strings.TrimSpace(*s) != "", msg)
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return status.Error(codes.InvalidArgument, strings.Join(v, ","))
}

func maxLen(s *string, n int) bool {
	return s == nil || len([]rune(*s)) <= n
}

func validEmail(s *string) bool {
	return s == nil || emailPattern.MatchString(*s)
}

func validURL(s *string) bool {
	if s == nil {
		return true
	}
	u, err := url.Parse(*s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func oneOf(s *string, values ...string) bool {
	return s == nil || slices.Contains(values, *s)
}

func isInteger(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0)
}

// text accept a json string or number, seed data carries weeks as "8"
type text string

// UnmarshalJSON decode a string or a number
func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid value %s", b)
	}
	*t = text(b)
	return nil
}

func (t *text) ptr() *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

// slugify lower case words joined by dashes
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}
