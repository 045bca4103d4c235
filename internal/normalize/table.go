package normalize

import (
	"regexp"
	"strings"

	"github.com/sells-group/lead-scraper/internal/model"
)

// Category selects the formatter applied to a field's raw value.
type Category int

const (
	CategoryText Category = iota
	CategoryName
	CategoryEmail
	CategoryPhone
	CategoryURL
	CategoryLocation
	CategoryVerbatim
	CategoryRating
	CategoryCount
	CategoryHours
	CategoryPriceLevel
	CategoryCoordinates
	CategoryMapsURL
)

var categoryNames = map[Category]string{
	CategoryText:        "text",
	CategoryName:        "name",
	CategoryEmail:       "email",
	CategoryPhone:       "phone",
	CategoryURL:         "url",
	CategoryLocation:    "location",
	CategoryVerbatim:    "verbatim",
	CategoryRating:      "rating",
	CategoryCount:       "count",
	CategoryHours:       "hours",
	CategoryPriceLevel:  "price_level",
	CategoryCoordinates: "coordinates",
	CategoryMapsURL:     "maps_url",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return "unknown"
}

// fieldSpec is one row of the field table: the formatter category, an
// optional URL acceptance rule, and the per-source alias lists.
type fieldSpec struct {
	category Category
	accept   func(url string) bool
	aliases  map[model.Source][]string
}

var websiteRe = regexp.MustCompile(`^https?://[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func hostContains(parts ...string) func(string) bool {
	return func(u string) bool {
		lower := strings.ToLower(u)
		for _, p := range parts {
			if strings.Contains(lower, p) {
				return true
			}
		}
		return false
	}
}

func acceptLinkedIn(u string) bool {
	if !strings.Contains(strings.ToLower(u), "linkedin.com") {
		return false
	}
	return strings.Contains(u, "/in/") || strings.Contains(u, "/company/")
}

func acceptWebsite(u string) bool { return websiteRe.MatchString(u) }

func aliases(contacts, places []string) map[model.Source][]string {
	m := make(map[model.Source][]string, 2)
	if contacts != nil {
		m[model.SourceContacts] = contacts
	}
	if places != nil {
		m[model.SourcePlaces] = places
	}
	return m
}

// table is the static field taxonomy consulted by Normalize.
var table = map[model.Field]fieldSpec{
	model.FieldName: {category: CategoryName, aliases: aliases(
		[]string{"name", "full_name", "firstName", "lastName", "fullName"},
		[]string{"title", "name", "placeName"},
	)},
	model.FieldEmail: {category: CategoryEmail, aliases: aliases(
		[]string{"email", "email_address", "emailAddress"},
		[]string{"email", "contactEmail", "emails"},
	)},
	model.FieldPhone: {category: CategoryPhone, aliases: aliases(
		[]string{"phone", "phone_number", "phoneNumber", "mobile"},
		[]string{"phone", "phoneNumber", "contactPhone", "phoneNumbers"},
	)},
	model.FieldMobile: {category: CategoryPhone, aliases: aliases(
		[]string{"mobile", "mobile_phone", "mobilePhone", "cell"},
		[]string{"mobile", "mobilePhone", "secondaryPhone"},
	)},

	model.FieldCompany: {category: CategoryText, aliases: aliases(
		[]string{"company", "organization", "companyName", "employer"},
		[]string{"title", "name", "placeName", "businessName"},
	)},
	model.FieldTitle: {category: CategoryText, aliases: aliases(
		[]string{"title", "job_title", "position", "jobTitle"},
		[]string{"categoryName", "category", "type"},
	)},
	model.FieldDepartment: {category: CategoryText, aliases: aliases(
		[]string{"department", "division", "team"}, nil,
	)},
	model.FieldSeniority: {category: CategoryText, aliases: aliases(
		[]string{"seniority", "level", "seniorityLevel"}, nil,
	)},
	model.FieldIndustry: {category: CategoryText, aliases: aliases(
		[]string{"industry", "sector", "vertical"},
		[]string{"categoryName", "category", "type", "subtype"},
	)},
	model.FieldCompanySize: {category: CategoryText, aliases: aliases(
		[]string{"company_size", "companySize", "employees", "size"}, nil,
	)},
	model.FieldRevenue: {category: CategoryVerbatim, aliases: aliases(
		[]string{"revenue", "annualRevenue", "turnover"}, nil,
	)},

	model.FieldLocation: {category: CategoryLocation, aliases: aliases(
		[]string{"location", "city", "country", "address", "region"},
		[]string{"address", "fullAddress", "location", "street"},
	)},
	model.FieldCity: {category: CategoryText, aliases: aliases(
		[]string{"city", "locality", "town"},
		[]string{"city", "locality", "addressCity"},
	)},
	model.FieldState: {category: CategoryText, aliases: aliases(
		[]string{"state", "province", "region"},
		[]string{"state", "region", "addressState"},
	)},
	model.FieldCountry: {category: CategoryText, aliases: aliases(
		[]string{"country", "nation"},
		[]string{"country", "addressCountry"},
	)},
	model.FieldTimezone: {category: CategoryVerbatim, aliases: aliases(
		[]string{"timezone", "timeZone", "tz"}, nil,
	)},

	model.FieldLinkedIn: {category: CategoryURL, accept: acceptLinkedIn, aliases: aliases(
		[]string{"linkedin", "linkedin_url", "linkedinUrl", "linkedIn"},
		[]string{"linkedIn", "linkedin", "social_linkedin"},
	)},
	model.FieldTwitter: {category: CategoryURL, accept: hostContains("twitter.com", "x.com"), aliases: aliases(
		[]string{"twitter", "twitter_url", "twitterUrl", "x_url"},
		[]string{"twitter", "x", "social_twitter"},
	)},
	model.FieldInstagram: {category: CategoryURL, accept: hostContains("instagram.com"), aliases: aliases(
		[]string{"instagram", "instagram_url", "instagramUrl"},
		[]string{"instagram", "social_instagram"},
	)},
	model.FieldFacebook: {category: CategoryURL, accept: hostContains("facebook.com"), aliases: aliases(
		[]string{"facebook", "facebook_url", "facebookUrl"},
		[]string{"facebook", "social_facebook"},
	)},
	model.FieldWebsite: {category: CategoryURL, accept: acceptWebsite, aliases: aliases(
		[]string{"website", "company_website", "websiteUrl", "companyWebsite"},
		[]string{"website", "websiteUrl", "url"},
	)},

	model.FieldExperienceYears: {category: CategoryText, aliases: aliases(
		[]string{"experience_years", "yearsExperience", "experience"}, nil,
	)},
	model.FieldEducation: {category: CategoryText, aliases: aliases(
		[]string{"education", "degree", "university", "school"}, nil,
	)},
	model.FieldSkills: {category: CategoryText, aliases: aliases(
		[]string{"skills", "expertise", "technologies"}, nil,
	)},
	model.FieldKeywords: {category: CategoryText, aliases: aliases(
		[]string{"keywords", "tags", "interests"}, nil,
	)},

	model.FieldRating: {category: CategoryRating, aliases: aliases(
		nil, []string{"totalScore", "rating", "averageRating"},
	)},
	model.FieldReviewsCount: {category: CategoryCount, aliases: aliases(
		nil, []string{"reviewsCount", "totalReviews", "numberOfReviews"},
	)},
	model.FieldHours: {category: CategoryHours, aliases: aliases(
		nil, []string{"openingHours", "hours", "workingHours"},
	)},
	model.FieldPriceLevel: {category: CategoryPriceLevel, aliases: aliases(
		nil, []string{"priceLevel", "price"},
	)},
	model.FieldPlusCode: {category: CategoryCoordinates, aliases: aliases(
		nil, []string{"plusCode", "coordinates"},
	)},
	model.FieldPlaceID: {category: CategoryVerbatim, aliases: aliases(
		nil, []string{"placeId", "googleId", "id"},
	)},
	model.FieldMapsURL: {category: CategoryMapsURL, aliases: aliases(
		nil, []string{"url", "mapUrl", "googleMapsUrl"},
	)},
	model.FieldBusinessType: {category: CategoryText, aliases: aliases(
		nil, []string{"categoryName", "primaryCategory", "type"},
	)},
	model.FieldAmenities: {category: CategoryText, aliases: aliases(
		nil, []string{"amenities", "features", "services"},
	)},
	model.FieldPhotosCount: {category: CategoryCount, aliases: aliases(
		nil, []string{"photosCount", "imageCount", "numberOfPhotos"},
	)},
}

// CategoryOf returns the formatter category for f. Unknown fields format as text.
func CategoryOf(f model.Field) Category {
	if spec, ok := table[f]; ok {
		return spec.category
	}
	return CategoryText
}

// Aliases returns the ordered raw-key candidates for f on src, or nil when the
// field is looked up by its own name.
func Aliases(src model.Source, f model.Field) []string {
	spec, ok := table[f]
	if !ok {
		return nil
	}
	return spec.aliases[src]
}
