package mapper_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sqlmate/dbcore/mapper"
	"github.com/stretchr/testify/assert"
)

func TestMapValue_Null(t *testing.T) {
	assert.Nil(t, mapper.MapValue(mapper.Postgres, "int4", nil))
	assert.Nil(t, mapper.MapValue(mapper.MySQL, "blob", []byte(nil)))
}

func TestMapValue_Postgres(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		name     string
		typeName string
		raw      any
		want     any
	}{
		{"bool", "boolean", true, true},
		{"uuid", "uuid", id.String(), id.String()},
		{"int", "int4", int64(42), int64(42)},
		{"numeric", "numeric", []byte("3.14"), 3.14},
		{"text", "text", "hello", "hello"},
		{"bytea", "bytea", []byte{0xDE, 0xAD}, "0xdead"},
		{"fallback", "point", []byte{0x01, 0x02}, "Binary/Complex (point)"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapper.MapValue(mapper.Postgres, tt.typeName, tt.raw))
		})
	}
}

func TestMapValue_Postgres_Temporal(t *testing.T) {
	utc := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-01-02T03:04:05Z", mapper.MapValue(mapper.Postgres, "timestamptz", utc))

	naive := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("", 0))
	assert.Equal(t, "2024-01-02 03:04:05", mapper.MapValue(mapper.Postgres, "timestamp", naive))
}

func TestMapValue_MySQL(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		name     string
		typeName string
		raw      any
		want     any
	}{
		{"tinyint1_bool", "tinyint(1)", int64(1), true},
		{"unsigned", "int unsigned", []byte("18446744073709551615"), uint64(18446744073709551615)},
		{"blob_uuid", "blob", id[:], id.String()},
		{"blob_hex", "blob", []byte{0xAB, 0xCD}, "0xabcd"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapper.MapValue(mapper.MySQL, tt.typeName, tt.raw))
		})
	}
}

func TestMapValue_SQLite(t *testing.T) {
	assert.Equal(t, int64(7), mapper.MapValue(mapper.SQLite, "INTEGER", int64(7)))
	assert.Equal(t, "0xff", mapper.MapValue(mapper.SQLite, "blob", []byte{0xFF}))
	assert.Equal(t, "abc", mapper.MapValue(mapper.SQLite, "TEXT", "abc"))
}
