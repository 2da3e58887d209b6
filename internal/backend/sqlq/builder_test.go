package sqlq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/refdata/internal/contracts"
)

func TestBuild(t *testing.T) {
	daily := contracts.Query{
		Table:   "ashareeodprices",
		Columns: []string{"S_INFO_WINDCODE", "TRADE_DT", "S_DQ_CLOSE"},
		In:      &contracts.InFilter{Column: "S_INFO_WINDCODE", Values: []string{"000001.SZ", "600000.SH"}},
		Range:   &contracts.RangeFilter{Column: "TRADE_DT", From: "20200101", To: "20200131"},
		OrderBy: []string{"TRADE_DT", "S_INFO_WINDCODE desc"},
	}

	tests := []struct {
		name     string
		query    contracts.Query
		dialect  Dialect
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "postgres daily",
			query:    daily,
			dialect:  Dollar,
			wantSQL:  "SELECT S_INFO_WINDCODE, TRADE_DT, S_DQ_CLOSE FROM ashareeodprices WHERE S_INFO_WINDCODE IN ($1, $2) AND TRADE_DT >= $3 AND TRADE_DT <= $4 ORDER BY TRADE_DT, S_INFO_WINDCODE DESC",
			wantArgs: []interface{}{"000001.SZ", "600000.SH", "20200101", "20200131"},
		},
		{
			name:     "clickhouse daily",
			query:    daily,
			dialect:  Question,
			wantSQL:  "SELECT S_INFO_WINDCODE, TRADE_DT, S_DQ_CLOSE FROM ashareeodprices WHERE S_INFO_WINDCODE IN (?, ?) AND TRADE_DT >= ? AND TRADE_DT <= ? ORDER BY TRADE_DT, S_INFO_WINDCODE DESC",
			wantArgs: []interface{}{"000001.SZ", "600000.SH", "20200101", "20200131"},
		},
		{
			name: "all columns with equality",
			query: contracts.Query{
				Table:  "aindexhs300freeweight",
				Equals: []contracts.Equality{{Column: "S_INFO_WINDCODE", Value: "399300.SZ"}},
			},
			dialect:  Dollar,
			wantSQL:  "SELECT * FROM aindexhs300freeweight WHERE S_INFO_WINDCODE = $1",
			wantArgs: []interface{}{"399300.SZ"},
		},
		{
			name: "open range",
			query: contracts.Query{
				Table: "asharecalendar",
				Range: &contracts.RangeFilter{Column: "TRADE_DAYS", To: "20200131"},
			},
			dialect:  Question,
			wantSQL:  "SELECT * FROM asharecalendar WHERE TRADE_DAYS <= ?",
			wantArgs: []interface{}{"20200131"},
		},
		{
			name: "empty in list",
			query: contracts.Query{
				Table: "ashareeodprices",
				In:    &contracts.InFilter{Column: "S_INFO_WINDCODE"},
			},
			dialect: Dollar,
			wantSQL: "SELECT * FROM ashareeodprices WHERE 1 = 0",
		},
		{
			name:    "schema qualified",
			query:   contracts.Query{Table: "market.kline_sh_a"},
			dialect: Question,
			wantSQL: "SELECT * FROM market.kline_sh_a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := Build(tt.query, tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuild_RejectsInjection(t *testing.T) {
	queries := []contracts.Query{
		{Table: "prices; DROP TABLE x"},
		{Table: "prices", Columns: []string{"a, b"}},
		{Table: "prices", In: &contracts.InFilter{Column: "id)", Values: []string{"1"}}},
		{Table: "prices", Range: &contracts.RangeFilter{Column: "1=1 OR d", From: 1}},
		{Table: "prices", Equals: []contracts.Equality{{Column: "x'", Value: 1}}},
		{Table: "prices", OrderBy: []string{"d; --"}},
	}

	for _, q := range queries {
		_, _, err := Build(q, Dollar)
		assert.ErrorIs(t, err, contracts.ErrConfiguration, "%+v", q)
	}
}
