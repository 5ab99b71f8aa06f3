package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	if got := f.Type.String(); got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestArchivedTurn_Fields(t *testing.T) {
	typ := reflect.TypeOf(ArchivedTurn{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "ExchangeID", "size:36")
	assertGormTag(t, typ, "ExchangeID", "index")
	assertGormTag(t, typ, "ChannelID", "not null")
	assertGormTag(t, typ, "ChannelID", "uniqueIndex:idx_channel_seq")
	assertGormTag(t, typ, "Sequence", "uniqueIndex:idx_channel_seq")
	assertGormTag(t, typ, "Role", "size:16")
	assertGormTag(t, typ, "Content", "type:mediumtext")
	assertGormTag(t, typ, "CreatedAt", "index")

	assertFieldType(t, typ, "ID", "uint")
	assertFieldType(t, typ, "Sequence", "int")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}
