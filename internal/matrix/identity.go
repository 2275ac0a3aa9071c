package matrix

import "github.com/yildizm/feedcluster/internal/record"

// Identities returns the identity value of every record, aligned by position
func Identities(records []*record.Record, field string) ([]string, error) {
	ids := make([]string, len(records))
	for i, rec := range records {
		v, ok := rec.String(field)
		if !ok {
			return nil, &MissingFieldError{Index: i, Field: field}
		}
		ids[i] = v
	}
	return ids, nil
}
