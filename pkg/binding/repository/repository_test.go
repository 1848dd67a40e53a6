package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/diwise/entity-binder/pkg/binding/accessor"
	binderrors "github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/diwise/entity-binder/pkg/binding/metadata"
	"github.com/matryer/is"
)

type Vehicle struct {
	ID     string `json:"id"`
	Plate  string `json:"plate"`
	Wheels int    `json:"wheels"`
}

type Truck struct {
	Vehicle
	Load float64 `json:"load"`
}

func TestHydrateUsesColumnsAndDiscriminator(t *testing.T) {
	is, md, pa := testSetup(t)

	v, err := Hydrate(md, pa, "Vehicle", map[string]any{
		"id":           "abc",
		"plate_number": "ABC123",
		"wheels":       int32(6),
		"load":         "12.5",
		"category":     "truck",
	})
	is.NoErr(err)

	truck, ok := v.(*Truck)
	is.True(ok) // should be resolved to a truck
	is.Equal(truck.ID, "abc")
	is.Equal(truck.Plate, "ABC123")
	is.Equal(truck.Wheels, 6)
	is.Equal(truck.Load, 12.5)
}

func TestHydrateFailsOnInvalidValues(t *testing.T) {
	is, md, pa := testSetup(t)

	_, err := Hydrate(md, pa, "Truck", map[string]any{"wheels": "many"})
	is.True(errors.Is(err, binderrors.ErrInvalidFieldValue))
}

func TestInMemoryFindsThroughParentType(t *testing.T) {
	is, md, pa := testSetup(t)
	repo := NewInMemory(md, pa)

	_, err := repo.AddRow("Truck", map[string]any{"id": "t1", "plate_number": "XYZ987"})
	is.NoErr(err)

	v, err := repo.FindOneBy(context.Background(), "Vehicle", map[string]any{"plate": "XYZ987"})
	is.NoErr(err)
	is.Equal(v.(*Truck).ID, "t1")

	v, err = repo.Find(context.Background(), "Truck", map[string]any{"id": "t1"})
	is.NoErr(err)
	is.Equal(v.(*Truck).Plate, "XYZ987")

	_, err = repo.Find(context.Background(), "Truck", map[string]any{"id": "t2"})
	is.True(errors.Is(err, binderrors.ErrNotFound))
}

func TestInMemoryRowsAreHydratedPerLookup(t *testing.T) {
	is, md, pa := testSetup(t)
	repo := NewInMemory(md, pa)

	_, err := repo.AddRow("Truck", map[string]any{"id": "t1", "plate_number": "XYZ987"})
	is.NoErr(err)

	first, err := repo.Find(context.Background(), "Truck", map[string]any{"id": "t1"})
	is.NoErr(err)
	first.(*Truck).Plate = "CHANGED"

	second, err := repo.Find(context.Background(), "Truck", map[string]any{"id": "t1"})
	is.NoErr(err)
	is.True(first != second)                  // every lookup should get its own instance
	is.Equal(second.(*Truck).Plate, "XYZ987") // the stored row should be unchanged
}

func TestInMemoryConcurrentLookups(t *testing.T) {
	is, md, pa := testSetup(t)
	repo := NewInMemory(md, pa)

	_, err := repo.AddRow("Truck", map[string]any{"id": "t1", "plate_number": "XYZ987"})
	is.NoErr(err)

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			v, err := repo.Find(context.Background(), "Vehicle", map[string]any{"id": "t1"})
			if err != nil {
				errs <- err
				return
			}
			v.(*Truck).Wheels = i
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		is.NoErr(err)
	}

	v, err := repo.Find(context.Background(), "Truck", map[string]any{"id": "t1"})
	is.NoErr(err)
	is.Equal(v.(*Truck).Wheels, 0)
}

func TestColumnsMapsFieldNames(t *testing.T) {
	is, md, _ := testSetup(t)

	d, err := md.Descriptor("Truck")
	is.NoErr(err)

	columns, err := Columns(d, map[string]any{"plate": "ABC123", "id": "abc"})
	is.NoErr(err)
	is.Equal(columns, map[string]any{"plate_number": "ABC123", "id": "abc"})

	_, err = Columns(d, map[string]any{"color": "red"})
	is.True(err != nil) // color is not a field
}

func TestSameValue(t *testing.T) {
	is := is.New(t)

	seven := int64(7)
	now := time.Now()

	is.True(SameValue("7", int64(7)))
	is.True(SameValue(json.Number("7"), &seven))
	is.True(SameValue(now, now.UTC()))
	is.True(SameValue(nil, (*int64)(nil)))
	is.True(!SameValue("7", nil))
	is.True(!SameValue("7", "8"))
}

func testSetup(t *testing.T) (*is.I, *metadata.Registry, accessor.PropertyAccessor) {
	is := is.New(t)
	registry := metadata.NewRegistry()

	is.NoErr(registry.Register(metadata.Descriptor{
		Type:        "Vehicle",
		Table:       "vehicles",
		Identifiers: []string{"id"},
		Fields: []metadata.Field{
			{Name: "id", Kind: metadata.String},
			{Name: "plate", Column: "plate_number", Kind: metadata.String},
			{Name: "wheels", Kind: metadata.Integer},
		},
		Discriminator: &metadata.Discriminator{Column: "category", Map: map[string]string{"truck": "Truck"}},
	}, nil))

	is.NoErr(registry.Register(metadata.Descriptor{
		Type:    "Truck",
		Extends: "Vehicle",
		Fields:  []metadata.Field{{Name: "load", Kind: metadata.Float}},
	}, func() any { return &Truck{} }))

	return is, registry, accessor.New()
}
