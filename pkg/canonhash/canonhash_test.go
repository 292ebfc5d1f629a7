package canonhash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

type CanonHashSuite struct {
	suite.Suite
	rng *rand.Rand
}

func TestCanonHashSuite(t *testing.T) {
	suite.Run(t, new(CanonHashSuite))
}

func (s *CanonHashSuite) SetupTest() {
	s.rng = rand.New(rand.NewSource(20240601))
}

func (s *CanonHashSuite) TestKeyOrderIndependence() {
	s.Run("nested maps written in different orders hash identically", func() {
		a := decode(s.T(), `{"b":2,"a":{"y":[1,{"q":true,"p":null}],"x":"1"}}`)
		b := decode(s.T(), `{"a":{"x":"1","y":[1,{"p":null,"q":true}]},"b":2}`)
		s.Equal(MustHash(a), MustHash(b))
	})

	s.Run("random values survive random key permutations at every depth", func() {
		for i := 0; i < 200; i++ {
			v := s.randomValue(4)
			original := MustHash(v)
			for j := 0; j < 3; j++ {
				permuted := decode(s.T(), s.shuffledJSON(v))
				s.Require().Equal(original, MustHash(permuted), "iteration %d/%d", i, j)
			}
		}
	})

	s.Run("structs hash like the equivalent map", func() {
		type area struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		}
		fromStruct := MustHash(area{Name: "finance", Status: "APPROVED"})
		fromMap := MustHash(map[string]any{"status": "APPROVED", "name": "finance"})
		s.Equal(fromMap, fromStruct)
	})
}

func (s *CanonHashSuite) TestListOrderMatters() {
	s.NotEqual(MustHash([]any{1, 2}), MustHash([]any{2, 1}))
}

func (s *CanonHashSuite) TestDigestShape() {
	for i := 0; i < 100; i++ {
		h, err := Hash(s.randomValue(3))
		s.Require().NoError(err)
		s.Require().Len(h, DigestLength)
		s.Require().Regexp(hexDigest, h)
	}
}

func (s *CanonHashSuite) TestVerify() {
	s.Run("round trip verifies", func() {
		for i := 0; i < 100; i++ {
			v := s.randomValue(3)
			s.Require().True(Verify(v, MustHash(v)))
		}
	})

	s.Run("any mutation fails verification", func() {
		v := map[string]any{"scope": []any{"FI-01", "CO-02"}, "version": 3}
		digest := MustHash(v)

		s.False(Verify(map[string]any{"scope": []any{"FI-01", "CO-02"}, "version": 4}, digest))
		s.False(Verify(map[string]any{"scope": []any{"CO-02", "FI-01"}, "version": 3}, digest))
		s.False(Verify(map[string]any{"scope": []any{"FI-01", "CO-02"}, "version": 3, "extra": nil}, digest))
	})

	s.Run("malformed digests never verify", func() {
		v := map[string]any{"a": 1}
		s.False(Verify(v, ""))
		s.False(Verify(v, "ABC"))
	})
}

func (s *CanonHashSuite) TestNumberSpelling() {
	s.Equal(MustHash(decode(s.T(), `{"n":1.0}`)), MustHash(map[string]any{"n": 1}))
	s.Equal(MustHash(decode(s.T(), `{"n":1e2}`)), MustHash(map[string]any{"n": int64(100)}))
	s.NotEqual(MustHash(map[string]any{"n": 1}), MustHash(map[string]any{"n": "1"}))
}

func TestCanonicalize_Form(t *testing.T) {
	b, err := Canonicalize(map[string]any{"b": []any{true, nil, 1.5}, "a": "<x>"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":[true,null,1.5]}`, string(b))
}

func TestHash_RejectsNonFinite(t *testing.T) {
	_, err := Hash(map[string]any{"x": mathInf()})
	assert.Error(t, err)
}

func TestHash_RejectsInvalidUTF8(t *testing.T) {
	type note struct {
		Text string `json:"text"`
	}
	tests := []struct {
		name  string
		value any
	}{
		{name: "map value", value: map[string]any{"notes": "approved\xff"}},
		{name: "map key", value: map[string]any{"approved\xfe": true}},
		{name: "nested list", value: []any{map[string]any{"n": []any{"ok", "\xc3"}}}},
		{name: "struct field", value: note{Text: "approved\xff"}},
		{name: "typed map key", value: map[string]int{"\xff": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Hash(tt.value)
			assert.ErrorIs(t, err, ErrInvalidUTF8)
		})
	}

	t.Run("distinct invalid bytes never verify against each other", func(t *testing.T) {
		valid, err := Hash(map[string]any{"notes": "approved\uFFFD"})
		require.NoError(t, err)
		assert.False(t, Verify(map[string]any{"notes": "approved\xfe"}, valid))
	})

	t.Run("raw bytes are hashed losslessly", func(t *testing.T) {
		type blob struct {
			Data []byte `json:"data"`
		}
		a, err := Hash(blob{Data: []byte{0xff}})
		require.NoError(t, err)
		b, err := Hash(blob{Data: []byte{0xfe}})
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func mathInf() float64 {
	f, _ := strconv.ParseFloat("+Inf", 64)
	return f
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func (s *CanonHashSuite) randomValue(depth int) any {
	kind := s.rng.Intn(7)
	if depth == 0 && kind >= 5 {
		kind = s.rng.Intn(5)
	}
	switch kind {
	case 0:
		return nil
	case 1:
		return s.rng.Intn(2) == 0
	case 2:
		return int64(s.rng.Intn(1000) - 500)
	case 3:
		return float64(s.rng.Intn(10000)) / 8
	case 4:
		return fmt.Sprintf("v%d", s.rng.Intn(50))
	case 5:
		n := s.rng.Intn(4)
		out := make([]any, n)
		for i := range out {
			out[i] = s.randomValue(depth - 1)
		}
		return out
	default:
		n := s.rng.Intn(5)
		out := make(map[string]any, n)
		for i := 0; i < n; i++ {
			out[fmt.Sprintf("k%d", s.rng.Intn(20))] = s.randomValue(depth - 1)
		}
		return out
	}
}

// shuffledJSON writes v as JSON with map keys in a random order.
func (s *CanonHashSuite) shuffledJSON(v any) string {
	var buf bytes.Buffer
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			s.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
			buf.WriteByte('{')
			for i, k := range keys {
				if i > 0 {
					buf.WriteByte(',')
				}
				buf.WriteString(strconv.Quote(k))
				buf.WriteByte(':')
				walk(t[k])
			}
			buf.WriteByte('}')
		case []any:
			buf.WriteByte('[')
			for i, el := range t {
				if i > 0 {
					buf.WriteByte(',')
				}
				walk(el)
			}
			buf.WriteByte(']')
		default:
			b, _ := json.Marshal(t)
			buf.Write(b)
		}
	}
	walk(v)
	return buf.String()
}
