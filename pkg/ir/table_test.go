package ir

import (
	"testing"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableIndexesNamedShapes(t *testing.T) {
	point := ProductOf("Point", F("x", Prim(Int)), F("y", Prim(Int)))
	line := ProductOf("Line", F("from", point), F("to", RefTo("Point")))
	color := SumOf("Color", V("Red", nil), V("Rgb", ListOf(Prim(Int))))
	drawing := ProductOf("Drawing",
		F("lines", ListOf(line)),
		F("fill", OptionalOf(color)),
		F("layers", DictOf(Prim(String), RefTo("Line"))),
	)

	table, err := NewTable(drawing, point)
	require.NoError(t, err)

	assert.Equal(t, []string{"Drawing", "Line", "Point", "Color"}, table.Names())
	got, ok := table.Lookup("Point")
	require.True(t, ok)
	assert.Same(t, point, got)
	assert.Same(t, point, table.Resolve(RefTo("Point")))

	prim := Prim(Bool)
	assert.Same(t, prim, table.Resolve(prim))
}

func TestNewTableRejects(t *testing.T) {
	tests := []struct {
		name  string
		roots []*Shape
		kind  error
	}{
		{"nil root", []*Shape{nil}, errors.ErrUnrepresentableType},
		{"nil field", []*Shape{ProductOf("A", F("x", nil))}, errors.ErrUnrepresentableType},
		{"unknown primitive", []*Shape{Prim(Primitive(42))}, errors.ErrUnrepresentableType},
		{"unnamed product", []*Shape{{Kind: KindProduct}}, errors.ErrUnrepresentableType},
		{"empty sum", []*Shape{SumOf("Never")}, errors.ErrUnrepresentableType},
		{"duplicate field", []*Shape{ProductOf("A", F("x", Prim(Int)), F("x", Prim(Int)))}, errors.ErrUnrepresentableType},
		{"duplicate variant", []*Shape{SumOf("S", V("A", nil), V("A", nil))}, errors.ErrUnrepresentableType},
		{"bool key", []*Shape{DictOf(Prim(Bool), Prim(Int))}, errors.ErrUnrepresentableType},
		{"product key", []*Shape{DictOf(ProductOf("K"), Prim(Int))}, errors.ErrUnrepresentableType},
		{"dangling ref", []*Shape{ProductOf("A", F("b", RefTo("B")))}, errors.ErrUnrepresentableType},
		{
			"payload tag field",
			[]*Shape{SumOf("S", V("A", ProductOf("AData", F("tag", Prim(String)))))},
			errors.ErrUnrepresentableType,
		},
		{
			"same name different identity",
			[]*Shape{
				{Kind: KindProduct, Name: "Point", ID: "geo.Point"},
				{Kind: KindProduct, Name: "Point", ID: "draw.Point"},
			},
			errors.ErrNameCollision,
		},
		{
			"same name different kind",
			[]*Shape{ProductOf("Point"), SumOf("Point", V("A", nil))},
			errors.ErrNameCollision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.roots...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestPayload(t *testing.T) {
	data := ProductOf("CircleData", F("radius", Prim(Float)))
	sum := SumOf("Figure",
		V("Circle", RefTo("CircleData")),
		V("Label", Prim(String)),
		V("Blank", ProductOf("BlankData")),
		V("Empty", nil),
	)
	table, err := NewTable(sum, data)
	require.NoError(t, err)

	kind, p := table.Payload(sum.Variants[0])
	assert.Equal(t, PayloadRecord, kind)
	assert.Same(t, data, p)

	kind, _ = table.Payload(sum.Variants[1])
	assert.Equal(t, PayloadValue, kind)

	kind, _ = table.Payload(sum.Variants[2])
	assert.Equal(t, PayloadNone, kind)

	kind, _ = table.Payload(sum.Variants[3])
	assert.Equal(t, PayloadNone, kind)
}

func TestShapeString(t *testing.T) {
	s := DictOf(Prim(String), ListOf(OptionalOf(RefTo("Node"))))
	assert.Equal(t, "Dict String (List (Optional &Node))", s.String())
}
