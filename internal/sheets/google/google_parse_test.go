package google

import (
	"reflect"
	"testing"
)

func TestNormalizeValues(t *testing.T) {
	values := [][]interface{}{
		{"COUG", "NOUG"},
		{"130101", " Secretaria de Saúde "},
		{"", ""},
		{},
		{130201, "Educação"},
	}
	want := [][]string{
		{"COUG", "NOUG"},
		{"130101", "Secretaria de Saúde"},
		{"130201", "Educação"},
	}
	if got := normalizeValues(values); !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeValues() = %v, want %v", got, want)
	}
}
