package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/gradebook/storage/database"
)

func TestDialect_Quote(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "mathematics", want: `"mathematics"`},
		{name: "3d_modelling", want: `"3d_modelling"`},
		{name: "null", want: `"null"`},
		{name: "order", want: `"order"`},
		{name: `we"ird`, want: `"we""ird"`},
	}
	for _, d := range []database.Dialect{database.Postgres, database.SQLite} {
		for _, tt := range tests {
			t.Run(d.Name+"/"+tt.name, func(t *testing.T) {
				assert.Equal(t, tt.want, d.Quote(tt.name))
			})
		}
	}
}
