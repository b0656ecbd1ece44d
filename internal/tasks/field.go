package tasks

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tgienger/stride/internal/models"
)

// Field names an editable task field
type Field string

const (
	FieldTitle         Field = "title"
	FieldDescription   Field = "description"
	FieldEstimatedTime Field = "estimatedTime"
	FieldDeadline      Field = "deadline"
	FieldStatus        Field = "status"
	FieldCategory      Field = "category"
	FieldTags          Field = "tags"
)

// ErrInvalidValue is returned when a value cannot be coerced to the field
var ErrInvalidValue = errors.New("invalid value for field")

// edit is a coerced field value ready to apply locally and send remotely
type edit struct {
	field Field
	apply func(*models.Task)
	key   string
	wire  any
}

// newEdit coerces value for field and builds the backend payload fragment
func newEdit(field Field, value any) (edit, error) {
	switch field {
	case FieldTitle, FieldDescription, FieldCategory:
		s, ok := value.(string)
		if !ok {
			return edit{}, fmt.Errorf("%w %s: %T", ErrInvalidValue, field, value)
		}
		e := edit{field: field, key: string(field), wire: s}
		switch field {
		case FieldTitle:
			e.apply = func(t *models.Task) { t.Title = s }
		case FieldDescription:
			e.apply = func(t *models.Task) { t.Description = s }
		case FieldCategory:
			e.apply = func(t *models.Task) { t.Category = s }
		}
		return e, nil

	case FieldEstimatedTime:
		n, err := coerceMinutes(value)
		if err != nil {
			return edit{}, err
		}
		return edit{
			field: field,
			key:   "estimated_time",
			wire:  n,
			apply: func(t *models.Task) { t.EstimatedTime = n },
		}, nil

	case FieldDeadline:
		d, err := coerceDate(value)
		if err != nil {
			return edit{}, err
		}
		var wire any
		if d != nil {
			wire = models.FormatDate(d)
		}
		return edit{
			field: field,
			key:   "deadline",
			wire:  wire,
			apply: func(t *models.Task) {
				if d == nil {
					t.Deadline = nil
					return
				}
				c := *d
				t.Deadline = &c
			},
		}, nil

	case FieldStatus:
		s, err := coerceStatus(value)
		if err != nil {
			return edit{}, err
		}
		return edit{
			field: field,
			key:   "status",
			wire:  models.StatusToBackend(s),
			apply: func(t *models.Task) { t.Status = s },
		}, nil

	case FieldTags:
		set, ok := value.(models.TagSet)
		if !ok {
			m, isMap := value.(map[string][]string)
			if !isMap {
				return edit{}, fmt.Errorf("%w %s: %T", ErrInvalidValue, field, value)
			}
			set = models.TagSet(m)
		}
		set = set.Clone()
		if set == nil {
			set = models.TagSet{}
		}
		return edit{
			field: field,
			key:   "tags",
			wire:  map[string][]string(set.Clone()),
			apply: func(t *models.Task) { t.Tags = set.Clone() },
		}, nil
	}
	return edit{}, fmt.Errorf("unknown field %q", field)
}

func coerceMinutes(value any) (int, error) {
	var n int
	switch v := value.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(math.Round(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return 0, fmt.Errorf("%w %s: %q", ErrInvalidValue, FieldEstimatedTime, v)
			}
			parsed = int(math.Round(f))
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w %s: %T", ErrInvalidValue, FieldEstimatedTime, value)
	}
	return max(n, 0), nil
}

func coerceDate(value any) (*models.Date, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case models.Date:
		return &v, nil
	case *models.Date:
		return v, nil
	case time.Time:
		if v.IsZero() {
			return nil, nil
		}
		d := models.DateOf(v)
		return &d, nil
	case string:
		d, err := models.ParseDate(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrInvalidValue, FieldDeadline, err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w %s: %T", ErrInvalidValue, FieldDeadline, value)
}

func coerceStatus(value any) (models.Status, error) {
	switch v := value.(type) {
	case models.Status:
		if s, ok := models.ParseStatus(string(v)); ok {
			return s, nil
		}
	case string:
		if s, ok := models.ParseStatus(v); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w %s: %v", ErrInvalidValue, FieldStatus, value)
}
