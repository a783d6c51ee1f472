package service

import (
	"strings"

	"github.com/saba2003/devcamper-api/auth"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/tools/snowflake"
)

var careers = []string{"Web Development", "Mobile Development", "UI/UX", "Data Science", "Business", "Other"}

// hiddenUserFields never leave the api
var hiddenUserFields = []string{"password", "resetPasswordToken", "resetPasswordExpire"}

type bootcampInput struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Website       *string   `json:"website"`
	Phone         *string   `json:"phone"`
	Email         *string   `json:"email"`
	Address       *string   `json:"address"`
	Careers       *[]string `json:"careers"`
	Housing       *bool     `json:"housing"`
	JobAssistance *bool     `json:"jobAssistance"`
	JobGuarantee  *bool     `json:"jobGuarantee"`
	AcceptGi      *bool     `json:"acceptGi"`
}

func (in *bootcampInput) validate(create bool) error {
	var v violations
	v.required(create, in.Name, "Please add a name")
	v.check(maxLen(in.Name, 50), "Name can not be more than 50 characters")
	v.required(create, in.Description, "Please add a description")
	v.check(maxLen(in.Description, 500), "Description can not be more than 500 characters")
	v.check(validURL(in.Website), "Please use a valid URL with HTTP or HTTPS")
	v.check(maxLen(in.Phone, 20), "Phone number can not be longer than 20 characters")
	v.check(validEmail(in.Email), "Please add a valid email")
	v.required(create, in.Address, "Please add an address")
	if in.Careers == nil {
		v.check(!create, "Please add at least one career")
	} else {
		v.check(len(*in.Careers) > 0, "Please add at least one career")
		for _, c := range *in.Careers {
			if !oneOf(&c, careers...) {
				v.check(false, "`"+c+"` is not a valid career")
			}
		}
	}
	return v.err()
}

// doc the fields present in the input, with the defaults on create
func (in *bootcampInput) doc(create bool) database.M {
	doc := database.M{}
	setString(doc, "name", in.Name)
	if in.Name != nil {
		doc["slug"] = slugify(*in.Name)
	}
	setString(doc, "description", in.Description)
	setString(doc, "website", in.Website)
	setString(doc, "phone", in.Phone)
	setString(doc, "email", in.Email)
	setString(doc, "address", in.Address)
	if in.Careers != nil {
		doc["careers"] = *in.Careers
	}
	setBool(doc, "housing", in.Housing, create)
	setBool(doc, "jobAssistance", in.JobAssistance, create)
	setBool(doc, "jobGuarantee", in.JobGuarantee, create)
	setBool(doc, "acceptGi", in.AcceptGi, create)
	if create {
		doc["photo"] = "no-photo.jpg"
		stamp(doc)
	}
	return doc
}

type courseInput struct {
	Title                *string  `json:"title"`
	Description          *string  `json:"description"`
	Weeks                *text    `json:"weeks"`
	Tuition              *float64 `json:"tuition"`
	MinimumSkill         *string  `json:"minimumSkill"`
	ScholarshipAvailable *bool    `json:"scholarshipAvailable"`
}

func (in *courseInput) validate(create bool) error {
	var v violations
	v.required(create, in.Title, "Please add a course title")
	v.required(create, in.Description, "Please add a description")
	v.required(create, in.Weeks.ptr(), "Please add number of weeks")
	v.check(!create || in.Tuition != nil, "Please add a tuition cost")
	v.check(in.Tuition == nil || *in.Tuition >= 0, "Please add a tuition cost")
	v.check(!create || in.MinimumSkill != nil, "Please add a minimum skill")
	v.check(oneOf(in.MinimumSkill, "beginner", "intermediate", "advanced"), "Please add a minimum skill")
	return v.err()
}

func (in *courseInput) doc(create bool) database.M {
	doc := database.M{}
	setString(doc, "title", in.Title)
	setString(doc, "description", in.Description)
	setString(doc, "weeks", in.Weeks.ptr())
	if in.Tuition != nil {
		doc["tuition"] = *in.Tuition
	}
	setString(doc, "minimumSkill", in.MinimumSkill)
	setBool(doc, "scholarshipAvailable", in.ScholarshipAvailable, create)
	if create {
		stamp(doc)
	}
	return doc
}

type reviewInput struct {
	Title  *string  `json:"title"`
	Text   *string  `json:"text"`
	Rating *float64 `json:"rating"`
}

func (in *reviewInput) validate(create bool) error {
	var v violations
	v.required(create, in.Title, "Please add a title for the review")
	v.check(maxLen(in.Title, 100), "Title can not be more than 100 characters")
	v.required(create, in.Text, "Please add some text")
	v.check(!create || in.Rating != nil, "Please add a rating between 1 and 10")
	v.check(in.Rating == nil || (*in.Rating >= 1 && *in.Rating <= 10 && isInteger(*in.Rating)),
		"Please add a rating between 1 and 10")
	return v.err()
}

func (in *reviewInput) doc(create bool) database.M {
	doc := database.M{}
	setString(doc, "title", in.Title)
	setString(doc, "text", in.Text)
	if in.Rating != nil {
		doc["rating"] = *in.Rating
	}
	if create {
		stamp(doc)
	}
	return doc
}

type userInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// validate the input, only admins may assign the admin role
func (in *userInput) validate(create, byAdmin bool) error {
	var v violations
	v.required(create, in.Name, "Please add a name")
	v.required(create, in.Email, "Please add an email")
	v.check(in.Email == nil || *in.Email == "" || validEmail(in.Email), "Please add a valid email")
	v.required(create, in.Password, "Please add a password")
	v.check(in.Password == nil || *in.Password == "" || len(*in.Password) >= 6,
		"Password must be at least 6 characters")
	roles := []string{auth.RoleUser, auth.RolePublisher}
	if byAdmin {
		roles = append(roles, auth.RoleAdmin)
	}
	v.check(oneOf(in.Role, roles...), "Please add a valid role")
	return v.err()
}

// doc the user fields, the password is hashed
func (in *userInput) doc(create bool) (database.M, error) {
	doc := database.M{}
	setString(doc, "name", in.Name)
	if in.Email != nil {
		doc["email"] = strings.TrimSpace(*in.Email)
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		doc["password"] = hash
	}
	setString(doc, "role", in.Role)
	if create {
		if in.Role == nil {
			doc["role"] = auth.RoleUser
		}
		stamp(doc)
	}
	return doc, nil
}

// publicUser drop the secrets of a user document
func publicUser(doc database.M) database.M {
	out := doc.Clone()
	for _, f := range hiddenUserFields {
		delete(out, f)
	}
	return out
}

func setString(doc database.M, key string, v *string) {
	if v != nil {
		doc[key] = strings.TrimSpace(*v)
	}
}

func setBool(doc database.M, key string, v *bool, withDefault bool) {
	switch {
	case v != nil:
		doc[key] = *v
	case withDefault:
		doc[key] = false
	}
}

// stamp the id and creation time of a new document
func stamp(doc database.M) {
	doc[database.IDKey] = snowflake.NewID()
	doc["createdAt"] = now()
}
