package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterSQL_Empty(t *testing.T) {
	where, args := Filter{}.sql()
	assert.Equal(t, "", where)
	assert.Nil(t, args)
}

func TestFilterSQL_NumbersArgumentsInOrder(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		filter Filter
		where  string
		args   []any
	}{
		{
			name:   "participant reuses one placeholder",
			filter: Filter{ParticipantID: "u1"},
			where:  " WHERE (initiator_id = $1 OR counterparty_id = $1 OR owner_id = $1)",
			args:   []any{"u1"},
		},
		{
			name:   "without participant numbering starts at one",
			filter: Filter{Currency: "EUR", Search: "rent"},
			where:  " WHERE currency = $1 AND description ILIKE $2",
			args:   []any{"EUR", "%rent%"},
		},
		{
			name: "every condition",
			filter: Filter{
				ParticipantID: "u1",
				Type:          TypePaymentSent,
				Currency:      "USD",
				From:          from,
				To:            to,
				Search:        "50%",
			},
			where: " WHERE (initiator_id = $1 OR counterparty_id = $1 OR owner_id = $1)" +
				" AND type = $2 AND currency = $3 AND created_at >= $4 AND created_at <= $5 AND description ILIKE $6",
			args: []any{"u1", "payment_sent", "USD", from, to, `%50\%%`},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := tc.filter.sql()
			assert.Equal(t, tc.where, where)
			assert.Equal(t, tc.args, args)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"plain":     "plain",
		"50%":       `50\%`,
		"a_b":       `a\_b`,
		`back\`:     `back\\`,
		`50%_off\`:  `50\%\_off\\`,
		`\%already`: `\\\%already`,
	}
	for in, want := range cases {
		assert.Equal(t, want, escapeLike(in), in)
	}
}

func TestAppendRecordSQLUsesStatementClock(t *testing.T) {
	assert.Contains(t, appendRecordSQL, "clock_timestamp()")
	assert.NotContains(t, strings.ToUpper(appendRecordSQL), "NOW()")

	cols := between(appendRecordSQL, "(", ")")
	vals := between(appendRecordSQL[strings.Index(appendRecordSQL, "VALUES"):], "(", "RETURNING")
	assert.Equal(t, strings.Count(cols, ","), strings.Count(vals, ","))
	assert.Equal(t, 11, strings.Count(vals, "$"))
}

func between(s, left, right string) string {
	start := strings.Index(s, left) + len(left)
	end := strings.Index(s, right)
	return s[start:end]
}
