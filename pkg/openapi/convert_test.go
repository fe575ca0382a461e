package openapi

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstore = `
openapi: 3.0.3
info:
  title: Petstore
  version: 1.0.0
paths: {}
components:
  schemas:
    PetId:
      type: integer
    Status:
      type: string
      enum: [available, sold]
    Pet:
      type: object
      required: [id, name, status]
      properties:
        id:
          $ref: '#/components/schemas/PetId'
        name:
          type: string
        status:
          $ref: '#/components/schemas/Status'
        tags:
          type: array
          uniqueItems: true
          items:
            type: string
        owner:
          type: object
          required: [email]
          properties:
            email:
              type: string
            size:
              type: string
              enum: [small, large]
        labels:
          type: object
          additionalProperties:
            type: number
        parent:
          $ref: '#/components/schemas/Pet'
        nickname:
          type: string
          nullable: true
    Cat:
      type: object
      required: [kind, lives]
      properties:
        kind:
          type: string
        lives:
          type: integer
    Dog:
      type: object
      required: [kind]
      properties:
        kind:
          type: string
        good:
          type: boolean
    Animal:
      oneOf:
        - $ref: '#/components/schemas/Cat'
        - $ref: '#/components/schemas/Dog'
      discriminator:
        propertyName: kind
        mapping:
          cat: '#/components/schemas/Cat'
          dog: '#/components/schemas/Dog'
`

func load(t *testing.T, spec string) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(spec))
	require.NoError(t, err)
	return doc
}

func byName(shapes []*ir.Shape) map[string]*ir.Shape {
	out := make(map[string]*ir.Shape, len(shapes))
	for _, s := range shapes {
		out[s.Name] = s
	}
	return out
}

func TestConvert(t *testing.T) {
	shapes, err := Convert(load(t, petstore), nil)
	require.NoError(t, err)

	var names []string
	for _, s := range shapes {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Animal", "Cat", "Dog", "Pet", "Status"}, names, "PetId is an alias and never a root")

	pet := byName(shapes)["Pet"]
	assert.Equal(t, "#/components/schemas/Pet", pet.ID)

	fields := map[string]string{}
	for _, f := range pet.Fields {
		fields[f.Name] = f.Shape.String()
	}
	assert.Equal(t, map[string]string{
		"id":       "Int",
		"labels":   "Optional (Dict String Float)",
		"name":     "String",
		"nickname": "Optional String",
		"owner":    "Optional Pet_Owner",
		"parent":   "Optional &Pet",
		"status":   "Status",
		"tags":     "Optional (Set String)",
	}, fields)

	owner := pet.Fields[4].Shape.Elem
	require.Equal(t, "Pet_Owner", owner.Name)
	assert.Equal(t, "Optional Pet_Owner_Size", owner.Fields[1].Shape.String())

	_, err = ir.NewTable(shapes...)
	assert.NoError(t, err)
}

func TestConvertDiscriminatedUnion(t *testing.T) {
	shapes, err := Convert(load(t, petstore), func(name string) bool { return name == "Animal" })
	require.NoError(t, err)
	require.Len(t, shapes, 1)

	animal := shapes[0]
	assert.Equal(t, ir.KindSum, animal.Kind)
	require.Len(t, animal.Variants, 2)

	cat := animal.Variants[0]
	assert.Equal(t, "cat", cat.Name)
	require.Equal(t, ir.KindProduct, cat.Payload.Kind)
	require.Len(t, cat.Payload.Fields, 1, "the discriminator property is dropped")
	assert.Equal(t, "lives", cat.Payload.Fields[0].Name)
	assert.Equal(t, "Animal_Cat", cat.Payload.Name)

	dog := animal.Variants[1]
	assert.Equal(t, "dog", dog.Name)
	assert.Equal(t, "Optional Bool", dog.Payload.Fields[0].Shape.String())
}

func TestConvertRejects(t *testing.T) {
	tests := map[string]string{
		"anyOf": `
    Bad:
      anyOf:
        - type: string
        - type: integer`,
		"oneOf without discriminator": `
    Bad:
      oneOf:
        - type: string`,
		"integer enum": `
    Bad:
      type: integer
      enum: [1, 2]`,
		"untyped property": `
    Bad:
      type: object
      properties:
        anything: {}`,
	}
	for name, schema := range tests {
		t.Run(name, func(t *testing.T) {
			doc := load(t, "openapi: 3.0.3\ninfo: {title: t, version: '1'}\npaths: {}\ncomponents:\n  schemas:"+schema+"\n")
			_, err := Convert(doc, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrUnrepresentableType), "%v", err)
		})
	}
}

func TestConvertFilter(t *testing.T) {
	include := regexp.MustCompile(`^(Pet|Status)$`)
	shapes, err := Convert(load(t, petstore), include.MatchString)
	require.NoError(t, err)
	assert.Len(t, shapes, 2)
}

func TestLoadAndValidateDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(petstore), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Contains(t, doc.Components.Schemas, "Pet")
	assert.NoError(t, ValidateDocument(path))

	_, err = LoadDocument(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
