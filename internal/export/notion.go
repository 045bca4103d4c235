package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/pkg/notion"
)

// ErrNoDatabase is returned when no Notion database id is configured or given.
var ErrNoDatabase = eris.New("export: Notion database ID not configured. Please provide a database_id or set it in the configuration.")

// Notion creates one database page per record.
type Notion struct {
	client    notion.Client
	defaultDB string
}

// NewNotion returns a Notion exporter. defaultDB is used when a call passes
// an empty database id.
func NewNotion(client notion.Client, defaultDB string) *Notion {
	return &Notion{client: client, defaultDB: defaultDB}
}

func (n *Notion) database(dbID string) (string, error) {
	if id := strings.TrimSpace(dbID); id != "" {
		return id, nil
	}
	if n.defaultDB != "" {
		return n.defaultDB, nil
	}
	return "", ErrNoDatabase
}

// Export creates a page per record in dbID. A failure on one record does not
// stop the rest; the returned error covers only setup problems and context
// cancellation.
func (n *Notion) Export(ctx context.Context, dbID string, records []model.Record) (Summary, error) {
	id, err := n.database(dbID)
	if err != nil {
		return Summary{Status: StatusError, Message: err.Error()}, err
	}

	var sum Summary
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return sum, eris.Wrap(err, "export: notion cancelled")
		}
		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(id),
			},
			Properties: PageProperties(rec),
		}
		if _, err := n.client.CreatePage(ctx, req); err != nil {
			sum.FailedCount++
			sum.Errors = append(sum.Errors, fmt.Sprintf("Failed to create entry %d: %v", i, err))
			zap.L().Warn("notion entry failed", zap.Int("index", i), zap.Error(err))
			continue
		}
		sum.CreatedCount++
	}

	switch {
	case sum.CreatedCount == 0 && len(records) > 0:
		sum.Status = StatusError
		sum.Message = "Failed to create any entries"
	case sum.FailedCount > 0:
		sum.Status = StatusPartialSuccess
		sum.Message = fmt.Sprintf("Created %d entries in Notion database", sum.CreatedCount)
	default:
		sum.Status = StatusSuccess
		sum.Message = fmt.Sprintf("Created %d entries in Notion database", sum.CreatedCount)
	}

	zap.L().Info("notion export finished",
		zap.String("database_id", id),
		zap.Int("created", sum.CreatedCount),
		zap.Int("failed", sum.FailedCount),
	)
	return sum, nil
}

// PageProperties maps a record to Notion properties. Property names are the
// capitalized field names, except name which becomes the "Name" title. Empty
// values are skipped.
func PageProperties(rec model.Record) notionapi.Properties {
	props := make(notionapi.Properties, len(rec))
	for f, v := range rec {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch f {
		case model.FieldName:
			props["Name"] = notionapi.TitleProperty{
				Type:  notionapi.PropertyTypeTitle,
				Title: richText(v),
			}
		case model.FieldEmail:
			props["Email"] = notionapi.EmailProperty{
				Type:  notionapi.PropertyTypeEmail,
				Email: v,
			}
		case model.FieldPhone:
			props["Phone"] = notionapi.PhoneNumberProperty{
				Type:        notionapi.PropertyTypePhoneNumber,
				PhoneNumber: v,
			}
		case model.FieldLinkedIn, model.FieldTwitter, model.FieldWebsite:
			props[propertyName(f)] = notionapi.URLProperty{
				Type: notionapi.PropertyTypeURL,
				URL:  v,
			}
		default:
			props[propertyName(f)] = notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(v),
			}
		}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}}
}

// propertyName upper-cases the first letter of a field name and lower-cases
// the rest ("company_size" becomes "Company_size").
func propertyName(f model.Field) string {
	s := string(f)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// DatabaseInfo describes a Notion database.
type DatabaseInfo struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Properties []string `json:"properties"`
}

// DatabaseInfo fetches the title and property names of dbID.
func (n *Notion) DatabaseInfo(ctx context.Context, dbID string) (*DatabaseInfo, error) {
	id, err := n.database(dbID)
	if err != nil {
		return nil, err
	}
	db, err := n.client.GetDatabase(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "export: database info")
	}

	info := &DatabaseInfo{ID: db.ID.String(), Title: notion.PlainText(db.Title)}
	if info.ID == "" {
		info.ID = id
	}
	if info.Title == "" {
		info.Title = "Untitled"
	}
	for name := range db.Properties {
		info.Properties = append(info.Properties, name)
	}
	sort.Strings(info.Properties)
	return info, nil
}
