package user

import "time"

type Gender string

const (
	CisMale        Gender = "CISMALE"
	CisFemale      Gender = "CISFEMALE"
	TransMale      Gender = "TRANSMALE"
	TransFemale    Gender = "TRANSFEMALE"
	NonBinary      Gender = "NONBINARY"
	Intersex       Gender = "INTERSEX"
	Agender        Gender = "AGENDER"
	GenderOther    Gender = "OTHER"
	GenderNotToSay Gender = "PREFERNOTTOSAY"
)

type Sexuality string

const (
	Heterosexual      Sexuality = "HETEROSEXUAL"
	Homosexual        Sexuality = "HOMOSEXUAL"
	Bisexual          Sexuality = "BISEXUAL"
	Asexual           Sexuality = "ASEXUAL"
	Pansexual         Sexuality = "PANSEXUAL"
	Demisexual        Sexuality = "DEMISEXUAL"
	Polysexual        Sexuality = "POLYSEXUAL"
	SexualityOther    Sexuality = "OTHER"
	SexualityNotToSay Sexuality = "PREFERNOTTOSAY"
)

func IsValidGender(g Gender) bool {
	switch g {
	case CisMale, CisFemale, TransMale, TransFemale, NonBinary, Intersex,
		Agender, GenderOther, GenderNotToSay:
		return true
	}
	return false
}

func IsValidSexuality(s Sexuality) bool {
	switch s {
	case Heterosexual, Homosexual, Bisexual, Asexual, Pansexual, Demisexual,
		Polysexual, SexualityOther, SexualityNotToSay:
		return true
	}
	return false
}

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Password       string    `json:"password,omitempty"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Gender         Gender    `json:"gender,omitempty"`
	Sexuality      Sexuality `json:"sexuality,omitempty"`
	ConnectionCode string    `json:"connection_code"`
	AcceptedTerms  bool      `json:"has_accepted_terms_and_conditions"`
	AcceptedPolicy bool      `json:"has_accepted_privacy_policy"`
	CreatedAt      time.Time `json:"created_at"`
}
