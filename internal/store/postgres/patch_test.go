package postgres

import (
	"strings"
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPatchQueryIsConditional(t *testing.T) {
	st := NewStore(nil)
	query, args, err := st.dialect.Update("queue_entries").
		Prepared(true).
		Set(goqu.Record{"status": "IN_PROGRESS"}).
		Where(goqu.Ex{"entry_id": "e-1", "status": "WALK_IN"}).
		Returning(queueColumns...).
		ToSQL()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(query, `UPDATE "queue_entries"`), query)
	assert.Contains(t, query, `"status"=$1`)
	assert.Contains(t, query, `"entry_id" = $2`)
	assert.Contains(t, query, `"status" = $3`)
	assert.Contains(t, query, `RETURNING "entry_id"`)
	assert.Equal(t, []interface{}{"IN_PROGRESS", "e-1", "WALK_IN"}, args)
}
