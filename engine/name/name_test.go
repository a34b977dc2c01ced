package name

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Foo":          "foo",
		"foo":          "foo",
		"Spork!!!1one": "spork_1one",
		"  5_W_E_L_L ": "_5_w_e_l_l_",
		"core:Door":    "core:door",
		"big-red door": "big_red_door",
		"a__b":         "a_b",
		"":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Foo Bar", "__x__", "Ünïcode-Name", "a:b::C", "!!!", "door.v2"}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), s)
	}
}

func TestNormalizeCaseInsensitive(t *testing.T) {
	assert.Equal(t, Normalize("foo"), Normalize("Foo"))
	assert.Equal(t, Normalize("DOOR_1"), Normalize("door_1"))
}

func TestName(t *testing.T) {
	a := New("Door", 1)
	b := New("door", 1)
	c := New("door", 2)
	assert.T(t, a == b, "names should be equal")
	assert.T(t, a != c, "names in different packages differ")
	assert.T(t, a.Less(c), "package orders equal ids")
	assert.T(t, New("a", 2).Less(New("b", 1)), "id orders first")
	assert.T(t, !New("b", 1).Less(New("a", 2)), "id orders first")
	assert.Equal(t, "1:door", a.String())

	seen := map[Name]bool{a: true}
	assert.T(t, seen[b], "names should hash structurally")
}
