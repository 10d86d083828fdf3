package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

func TestFeedbackJSONDeletedFlag(t *testing.T) {
	deletedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		deletedAt   gorm.DeletedAt
		wantDeleted bool
	}{
		{name: "active", wantDeleted: false},
		{name: "soft deleted", deletedAt: gorm.DeletedAt{Time: deletedAt, Valid: true}, wantDeleted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Feedback{ID: "fb-1", TotalScore: 70, FinalAssessment: "Solid", DeletedAt: tt.deletedAt}

			for _, v := range []any{f, &f} {
				raw, err := json.Marshal(v)
				require.NoError(t, err)

				doc := gjson.ParseBytes(raw)
				assert.Equal(t, tt.wantDeleted, doc.Get("is_deleted").Bool())
				assert.True(t, doc.Get("is_deleted").Exists())
				assert.Equal(t, "fb-1", doc.Get("id").String())
				assert.Equal(t, int64(70), doc.Get("total_score").Int())
				assert.False(t, doc.Get("StatsApplied").Exists())
				assert.False(t, doc.Get("stats_applied").Exists())
				if tt.wantDeleted {
					assert.Equal(t, deletedAt.Format(time.RFC3339), doc.Get("deleted_at").String())
				} else {
					assert.Equal(t, gjson.Null, doc.Get("deleted_at").Type)
				}
			}
		})
	}
}

func TestFeedbackJSONInsideResponses(t *testing.T) {
	f := Feedback{ID: "fb-2", DeletedAt: gorm.DeletedAt{Time: time.Now(), Valid: true}}
	raw, err := json.Marshal(map[string]any{"feedbacks": []Feedback{f}})
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(raw, "feedbacks.0.is_deleted").Bool())
}
