package wire

import (
	"net/url"
	"reflect"
	"testing"

	"github.com/blimu-dev/elmgen/pkg/derive"
	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Color string

const (
	Red   Color = "Red"
	Green Color = "Green"
	Blue  Color = "Blue"
)

type Figure interface{ isFigure() }

type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

type Label string

type Blank struct{}

func (Circle) isFigure() {}
func (Label) isFigure()  {}
func (*Blank) isFigure() {}

type Node struct {
	Value    int     `json:"value"`
	Children []*Node `json:"children"`
	Next     *Node   `json:"next"`
}

type Team struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

type Member struct {
	Handle string `json:"handle"`
	Team   *Team  `json:"team"`
}

type Inventory struct {
	Counts  map[int]string      `json:"counts"`
	Ratios  map[float64]bool    `json:"ratios"`
	Tags    map[string]struct{} `json:"tags"`
	Grid    [2][2]int           `json:"grid"`
	Note    **int               `json:"note"`
	Marker  struct{}            `json:"marker"`
	Nothing *struct{}           `json:"nothing"`
	Fill    *Color              `json:"fill"`
	Shapes  []Figure            `json:"shapes"`
}

type Filter struct {
	Query  string   `json:"q"`
	Page   *int     `json:"page"`
	Tags   []string `json:"tags"`
	Exact  bool     `json:"exact"`
	Bounds struct {
		Min float64 `json:"min"`
	} `json:"bounds"`
}

func deriver(t *testing.T) *derive.Deriver {
	t.Helper()
	d := derive.New()
	require.NoError(t, d.RegisterEnum(reflect.TypeOf(Color("")), "", Red, Green, Blue))
	require.NoError(t, d.RegisterSum(reflect.TypeOf((*Figure)(nil)).Elem(), "",
		derive.VariantSpec{Type: reflect.TypeOf(Circle{})},
		derive.VariantSpec{Type: reflect.TypeOf(Label(""))},
		derive.VariantSpec{Type: reflect.TypeOf(&Blank{})},
	))
	return d
}

func shapeOf[T any](t *testing.T) *ir.Shape {
	t.Helper()
	s, err := deriver(t).Shape(reflect.TypeOf((*T)(nil)).Elem())
	require.NoError(t, err)
	return s
}

func roundTrip[T any](t *testing.T, v T) []byte {
	t.Helper()
	sh := shapeOf[T](t)
	data, err := Marshal(sh, v)
	require.NoError(t, err)

	var got T
	require.NoError(t, Unmarshal(sh, data, &got), "%s", data)
	assert.Equal(t, v, got)
	return data
}

func TestPoint(t *testing.T) {
	data := roundTrip(t, Point{X: 1, Y: -2})
	assert.JSONEq(t, `{"x":1,"y":-2}`, string(data))

	var p Point
	err := Unmarshal(shapeOf[Point](t), []byte(`{"x":1}`), &p)
	assert.True(t, errors.Is(err, errors.ErrDecodeFailure), "missing y: %v", err)
}

func TestColor(t *testing.T) {
	sh := shapeOf[Color](t)
	for _, c := range []Color{Red, Green, Blue} {
		data := roundTrip(t, c)
		assert.JSONEq(t, `{"tag":"`+string(c)+`"}`, string(data))
	}

	var c Color
	err := Unmarshal(sh, []byte(`{"tag":"Purple"}`), &c)
	assert.True(t, errors.Is(err, errors.ErrDecodeFailure), "unknown tag: %v", err)

	_, err = Marshal(sh, Color("Purple"))
	assert.True(t, errors.Is(err, errors.ErrUnrepresentableType))
}

func TestFigure(t *testing.T) {
	tests := []struct {
		value Figure
		json  string
	}{
		{Circle{Center: Point{X: 1, Y: 2}, Radius: 0.5}, `{"tag":"Circle","center":{"x":1,"y":2},"radius":0.5}`},
		{Label("hi"), `{"tag":"Label","value":"hi"}`},
		{&Blank{}, `{"tag":"Blank"}`},
	}
	sh := shapeOf[Figure](t)
	for _, tt := range tests {
		data, err := Marshal(sh, tt.value)
		require.NoError(t, err)
		assert.JSONEq(t, tt.json, string(data))

		var got Figure
		require.NoError(t, Unmarshal(sh, data, &got))
		assert.Equal(t, tt.value, got)
	}

	var got Figure
	err := Unmarshal(sh, []byte(`{"tag":"Label"}`), &got)
	assert.True(t, errors.Is(err, errors.ErrDecodeFailure), "missing value: %v", err)
	err = Unmarshal(sh, []byte(`{"value":"x"}`), &got)
	assert.True(t, errors.Is(err, errors.ErrDecodeFailure), "missing tag: %v", err)
}

func TestRecursive(t *testing.T) {
	roundTrip(t, Node{
		Value: 1,
		Children: []*Node{
			{Value: 2, Children: []*Node{}},
			nil,
		},
		Next: &Node{Value: 3, Children: []*Node{}},
	})
}

func TestMutualRecursion(t *testing.T) {
	data := roundTrip(t, Team{
		Name: "core",
		Members: []Member{
			{Handle: "ada", Team: &Team{Name: "alumni", Members: []Member{}}},
			{Handle: "bo"},
		},
	})
	assert.JSONEq(t, `{
		"name": "core",
		"members": [
			{"handle": "ada", "team": {"name": "alumni", "members": []}},
			{"handle": "bo", "team": null}
		]
	}`, string(data))

	sh := shapeOf[Member](t)
	assert.Equal(t, "List &Member", sh.Fields[1].Shape.Elem.Fields[1].Shape.String())
}

func TestContainers(t *testing.T) {
	three := 3
	noteSet := &three
	fill := Green

	data := roundTrip(t, Inventory{
		Counts:  map[int]string{2: "b", 1: "a"},
		Ratios:  map[float64]bool{0.5: true},
		Tags:    map[string]struct{}{"b": {}, "a": {}},
		Grid:    [2][2]int{{1, 2}, {3, 4}},
		Note:    &noteSet,
		Nothing: &struct{}{},
		Fill:    &fill,
		Shapes:  []Figure{Label("x")},
	})
	assert.JSONEq(t, `{
		"counts": {"1": "a", "2": "b"},
		"ratios": {"0.5": true},
		"tags": ["a", "b"],
		"grid": [[1, 2], [3, 4]],
		"note": [3],
		"marker": null,
		"nothing": [null],
		"fill": {"tag": "Green"},
		"shapes": [{"tag": "Label", "value": "x"}]
	}`, string(data))

	var justNothing *int
	data = roundTrip(t, Inventory{
		Counts: map[int]string{},
		Ratios: map[float64]bool{},
		Tags:   map[string]struct{}{},
		Note:   &justNothing,
		Shapes: []Figure{},
	})
	assert.Contains(t, string(data), `"note":[null]`)
	assert.Contains(t, string(data), `"nothing":null`)

	data = roundTrip(t, Inventory{
		Counts: map[int]string{},
		Ratios: map[float64]bool{0.00001: true, 2e6: false, 1234567: true},
		Tags:   map[string]struct{}{},
		Shapes: []Figure{},
	})
	assert.Contains(t, string(data), `"ratios":{"0.00001":true,"1234567":true,"2000000":false}`)
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0"},
		{1.5, "1.5"},
		{-2, "-2"},
		{1234567, "1234567"},
		{2e6, "2000000"},
		{0.00001, "0.00001"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{-1.5e-7, "-1.5e-7"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.25e100, "1.25e+100"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, formatFloat(test.input), "%v", test.input)
	}
}

func TestUnmarshalLenientOptionals(t *testing.T) {
	type Profile struct {
		Name string  `json:"name"`
		Bio  *string `json:"bio"`
	}
	sh := shapeOf[Profile](t)

	for _, doc := range []string{`{"name":"a"}`, `{"name":"a","bio":null}`} {
		var p Profile
		require.NoError(t, Unmarshal(sh, []byte(doc), &p))
		assert.Equal(t, "a", p.Name)
		assert.Nil(t, p.Bio)
	}

	data, err := Marshal(sh, Profile{Name: "a"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","bio":null}`, string(data))
}

func TestUnmarshalFailures(t *testing.T) {
	type Sample struct {
		Count  int8           `json:"count"`
		Flag   bool           `json:"flag"`
		Byname map[int]string `json:"byname"`
		Pair   [2]int         `json:"pair"`
		Twice  **int          `json:"twice"`
	}
	sh := shapeOf[Sample](t)
	valid := `"count":1,"flag":true,"byname":{},"pair":[1,2],"twice":null`

	var s Sample
	require.NoError(t, Unmarshal(sh, []byte(`{`+valid+`}`), &s))
	require.NoError(t, Unmarshal(sh, []byte(`{"count":2.0,"flag":true,"byname":{"-3":"x"},"pair":[1,2],"twice":[null]}`), &s))
	assert.Equal(t, int8(2), s.Count)
	assert.Equal(t, map[int]string{-3: "x"}, s.Byname)
	require.NotNil(t, s.Twice)
	assert.Nil(t, *s.Twice)

	for name, doc := range map[string]string{
		"fractional int":  `{"count":1.5,"flag":true,"byname":{},"pair":[1,2],"twice":null}`,
		"int overflow":    `{"count":300,"flag":true,"byname":{},"pair":[1,2],"twice":null}`,
		"string for bool": `{"count":1,"flag":"yes","byname":{},"pair":[1,2],"twice":null}`,
		"bad dict key":    `{"count":1,"flag":true,"byname":{"one":"x"},"pair":[1,2],"twice":null}`,
		"array arity":     `{"count":1,"flag":true,"byname":{},"pair":[1],"twice":null}`,
		"bare nested":     `{"count":1,"flag":true,"byname":{},"pair":[1,2],"twice":5}`,
		"not an object":   `[]`,
		"trailing data":   `{` + valid + `} {}`,
		"invalid json":    `{"count":`,
	} {
		t.Run(name, func(t *testing.T) {
			var s Sample
			err := Unmarshal(sh, []byte(doc), &s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrDecodeFailure), "%v", err)
		})
	}
}

func TestUnmarshalNeedsPointer(t *testing.T) {
	var p Point
	assert.Error(t, Unmarshal(shapeOf[Point](t), []byte(`{"x":1,"y":2}`), p))
}

func TestHandBuiltShape(t *testing.T) {
	type pair struct {
		Left  string `json:"left"`
		Right string
	}
	sh := ir.ProductOf("Pair", ir.F("left", ir.Prim(ir.String)), ir.F("Right", ir.Prim(ir.String)))

	data, err := Marshal(sh, pair{Left: "l", Right: "r"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"left":"l","Right":"r"}`, string(data))

	var got pair
	require.NoError(t, Unmarshal(sh, data, &got))
	assert.Equal(t, pair{Left: "l", Right: "r"}, got)
}

func TestQuery(t *testing.T) {
	page := 2
	f := Filter{Query: "cats & dogs", Page: &page, Tags: []string{"a", "b"}, Exact: true}
	f.Bounds.Min = 1.5

	values, err := Query(shapeOf[Filter](t), f)
	require.NoError(t, err)
	assert.Equal(t, url.Values{
		"q":          {"cats & dogs"},
		"page":       {"2"},
		"tags":       {"a", "b"},
		"exact":      {"true"},
		"bounds.min": {"1.5"},
	}, values)

	f.Page = nil
	values, err = Query(shapeOf[Filter](t), f)
	require.NoError(t, err)
	assert.NotContains(t, values, "page")

	f.Bounds.Min = 1234567
	values, err = Query(shapeOf[Filter](t), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"1234567"}, values["bounds.min"])

	f.Bounds.Min = 0.00001
	values, err = Query(shapeOf[Filter](t), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.00001"}, values["bounds.min"])

	_, err = Query(shapeOf[Color](t), Red)
	assert.True(t, errors.Is(err, errors.ErrUnrepresentableType))
	_, err = Query(shapeOf[Inventory](t), Inventory{})
	assert.True(t, errors.Is(err, errors.ErrUnrepresentableType))
}
