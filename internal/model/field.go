package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Field is a canonical output field identifier.
type Field string

// Contact fields.
const (
	FieldName            Field = "name"
	FieldEmail           Field = "email"
	FieldPhone           Field = "phone"
	FieldMobile          Field = "mobile"
	FieldCompany         Field = "company"
	FieldTitle           Field = "title"
	FieldDepartment      Field = "department"
	FieldSeniority       Field = "seniority"
	FieldIndustry        Field = "industry"
	FieldCompanySize     Field = "company_size"
	FieldRevenue         Field = "revenue"
	FieldLocation        Field = "location"
	FieldCity            Field = "city"
	FieldState           Field = "state"
	FieldCountry         Field = "country"
	FieldTimezone        Field = "timezone"
	FieldLinkedIn        Field = "linkedin"
	FieldTwitter         Field = "twitter"
	FieldInstagram       Field = "instagram"
	FieldFacebook        Field = "facebook"
	FieldWebsite         Field = "website"
	FieldExperienceYears Field = "experience_years"
	FieldEducation       Field = "education"
	FieldSkills          Field = "skills"
	FieldKeywords        Field = "keywords"
)

// Places fields.
const (
	FieldRating       Field = "rating"
	FieldReviewsCount Field = "reviews_count"
	FieldHours        Field = "hours"
	FieldPriceLevel   Field = "price_level"
	FieldPlusCode     Field = "plus_code"
	FieldPlaceID      Field = "place_id"
	FieldMapsURL      Field = "maps_url"
	FieldBusinessType Field = "business_type"
	FieldAmenities    Field = "amenities"
	FieldPhotosCount  Field = "photos_count"
)

var allFields = []Field{
	FieldName, FieldEmail, FieldPhone, FieldMobile,
	FieldCompany, FieldTitle, FieldDepartment, FieldSeniority, FieldIndustry, FieldCompanySize, FieldRevenue,
	FieldLocation, FieldCity, FieldState, FieldCountry, FieldTimezone,
	FieldLinkedIn, FieldTwitter, FieldInstagram, FieldFacebook, FieldWebsite,
	FieldExperienceYears, FieldEducation, FieldSkills, FieldKeywords,
	FieldRating, FieldReviewsCount, FieldHours, FieldPriceLevel, FieldPlusCode,
	FieldPlaceID, FieldMapsURL, FieldBusinessType, FieldAmenities, FieldPhotosCount,
}

var fieldSet = func() map[Field]struct{} {
	m := make(map[Field]struct{}, len(allFields))
	for _, f := range allFields {
		m[f] = struct{}{}
	}
	return m
}()

// AllFields returns every canonical field in declaration order.
func AllFields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

// Valid reports whether f is a known canonical field.
func (f Field) Valid() bool {
	_, ok := fieldSet[f]
	return ok
}

func (f Field) String() string { return string(f) }

// ParseField resolves a field name, ignoring case and surrounding whitespace.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", eris.Errorf("model: unknown field %q", s)
	}
	return f, nil
}

// ParseFields resolves a list of field names, stopping at the first unknown one.
func ParseFields(names []string) ([]Field, error) {
	out := make([]Field, 0, len(names))
	for _, n := range names {
		f, err := ParseField(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Default field selections per job kind.
var (
	DefaultContactFields = []Field{FieldName, FieldEmail}
	DefaultPlacesFields  = []Field{FieldName, FieldPhone, FieldLocation}
)
