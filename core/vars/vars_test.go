package vars

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ExampleNewFromEnviron() {
	v := NewFromEnviron([]string{"A=B", "C=D", "E", "F=G=H"})

	fmt.Printf("Environ(): %q\n", v.Environ())
	fmt.Printf("Get(\"F\"): %q\n", v.Get("F"))

	// Output: Environ(): ["A=B" "C=D" "E=" "F=G=H"]
	// Get("F"): "G=H"
}

func ExampleVariables_Unset() {
	v := New()
	v.Set("A", "B")
	v.Set("C", "D")

	fmt.Println("Before:", v.Environ())
	v.Unset("A")
	fmt.Println("After:", v.Environ())

	// Output: Before: [A=B C=D]
	// After: [C=D]
}

func ExampleVariables_Lookup() {
	v := New()
	v.Set("A", "B")

	val, ok := v.Lookup("A")
	fmt.Println("Existing", "val:", val, "ok:", ok)
	val, ok = v.Lookup("B")
	fmt.Println("Missing", "val:", val, "ok:", ok)

	// Output: Existing val: B ok: true
	// Missing val:  ok: false
}

func TestRange(t *testing.T) {
	v := New()
	v.Set("list", "a b  c d")

	cases := map[string]struct {
		start, end int
		want       []string
	}{
		"all":        {0, 4, []string{"a", "b", "c", "d"}},
		"middle":     {1, 3, []string{"b", "c"}},
		"clamped":    {-2, 10, []string{"a", "b", "c", "d"}},
		"empty":      {2, 2, nil},
		"backwards":  {3, 1, nil},
		"past-end":   {5, 9, nil},
		"first-only": {0, 1, []string{"a"}},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, v.Range("list", tc.start, tc.end))
		})
	}
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("x"))
	assert.True(t, IsValidName("_under_score1"))
	assert.False(t, IsValidName(""))
	assert.False(t, IsValidName("1abc"))
	assert.False(t, IsValidName("a-b"))
	assert.False(t, IsValidName("?"))
}

func TestEnvironSkipsSpecialNames(t *testing.T) {
	v := New()
	v.Set("?", "0")
	v.Set("PATH", "/bin")

	assert.Equal(t, []string{"PATH=/bin"}, v.Environ())
	assert.Equal(t, []string{"?", "PATH"}, v.Names())
}
