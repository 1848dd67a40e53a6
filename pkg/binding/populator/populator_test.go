package populator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diwise/entity-binder/pkg/binding/accessor"
	binderrors "github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/diwise/entity-binder/pkg/binding/metadata"
	"github.com/diwise/entity-binder/pkg/binding/repository"
	"github.com/diwise/entity-binder/pkg/binding/values"
	"github.com/matryer/is"
)

type Owner struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Age      int        `json:"age"`
	Active   bool       `json:"active"`
	Born     *time.Time `json:"born"`
	Status   string     `json:"status"`
	Address  *Address   `json:"address"`
	Pets     []*Pet     `json:"pets"`
	Favorite Animal     `json:"favorite"`
}

type Address struct {
	ID     int64  `json:"id"`
	Street string `json:"street"`
}

type Pet struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Owner *Owner `json:"owner"`
}

type Animal interface {
	Sound() string
}

type Cat struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (*Cat) Sound() string { return "meow" }

type Dog struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (*Dog) Sound() string { return "woof" }

type Tag struct {
	Label string `json:"label"`
}

func TestScalarFieldsAreCoerced(t *testing.T) {
	is, p, _ := testSetup(t)
	owner := &Owner{Name: "Alice"}

	err := p.Populate(context.Background(), owner, values.Map{
		"age":    "42",
		"active": "true",
		"born":   "1980-05-01",
		"status": "active",
	}, "")
	is.NoErr(err)

	is.Equal(owner.Age, 42)
	is.True(owner.Active)
	is.True(owner.Born.Equal(time.Date(1980, time.May, 1, 0, 0, 0, 0, time.UTC)))
	is.Equal(owner.Status, "active")
	is.Equal(owner.Name, "Alice") // absent fields should be left untouched
}

func TestExplicitNullClearsFields(t *testing.T) {
	is, p, _ := testSetup(t)

	born := time.Now()
	owner := &Owner{Name: "Alice", Born: &born, Address: &Address{ID: 1}}

	err := p.Populate(context.Background(), owner, values.Map{
		"name":    nil,
		"born":    nil,
		"address": nil,
	}, "")
	is.NoErr(err)

	is.Equal(owner.Name, "")
	is.True(owner.Born == nil)
	is.True(owner.Address == nil)
}

func TestInvalidEnumValueFails(t *testing.T) {
	is, p, _ := testSetup(t)

	err := p.Populate(context.Background(), &Owner{}, values.Map{"status": "asleep"}, "")
	is.True(errors.Is(err, binderrors.ErrInvalidEnumValue))
}

func TestSingleAssociationReturnsPersistedInstance(t *testing.T) {
	is, p, repo := testSetup(t)

	persisted := &Address{ID: 10, Street: "Storgatan 1"}
	is.NoErr(repo.Add(persisted))

	owner := &Owner{}
	err := p.Populate(context.Background(), owner, values.Map{
		"address": map[string]any{"id": 10, "street": "Lillgatan 2"},
	}, "")
	is.NoErr(err)

	is.True(owner.Address == persisted) // should be the persisted instance
	is.Equal(persisted.Street, "Lillgatan 2")
}

func TestSingleAssociationWithoutIdentifierIsCreated(t *testing.T) {
	is, p, repo := testSetup(t)

	persisted := &Address{ID: 10, Street: "Storgatan 1"}
	is.NoErr(repo.Add(persisted))

	owner := &Owner{}
	err := p.Populate(context.Background(), owner, values.Map{
		"address": map[string]any{"street": "Storgatan 1"},
	}, "")
	is.NoErr(err)

	is.True(owner.Address != nil)
	is.True(owner.Address != persisted) // should never reuse an existing record
	is.Equal(owner.Address.Street, "Storgatan 1")
}

func TestUnknownIdentifierCreatesNewInstance(t *testing.T) {
	is, p, _ := testSetup(t)

	v, err := p.RetrieveAssociationValue(context.Background(), "Owner", "Address", values.Map{"id": 99, "street": "Nygatan"})
	is.NoErr(err)

	address := v.(*Address)
	is.Equal(address.ID, int64(99))
	is.Equal(address.Street, "Nygatan")
}

func TestCollectionIsMergedByIdentity(t *testing.T) {
	is, p, _ := testSetup(t)

	first := &Pet{ID: 1, Name: "one"}
	third := &Pet{ID: 3, Name: "three"}
	owner := &Owner{ID: 5, Pets: []*Pet{first, third}}

	err := p.Populate(context.Background(), owner, values.Map{
		"pets": []any{
			map[string]any{"id": 1, "name": "a"},
			map[string]any{"id": 2, "name": "b"},
		},
	}, "")
	is.NoErr(err)

	is.Equal(len(owner.Pets), 2)
	is.True(owner.Pets[0] == first) // id 1 should be kept and updated in place
	is.Equal(first.Name, "a")
	is.Equal(owner.Pets[1].ID, int64(2)) // id 2 should be created
	is.Equal(owner.Pets[1].Name, "b")

	is.True(owner.Pets[0].Owner == owner) // back reference should be set on the inverse side
	is.True(owner.Pets[1].Owner == owner)
}

func TestCollectionMemberIsFetchedWhenNotOwned(t *testing.T) {
	is, p, repo := testSetup(t)

	stray := &Pet{ID: 7, Name: "stray"}
	is.NoErr(repo.Add(stray))

	owner := &Owner{}
	err := p.Populate(context.Background(), owner, values.Map{
		"pets": []any{map[string]any{"id": "7"}},
	}, "")
	is.NoErr(err)

	is.Equal(len(owner.Pets), 1)
	is.True(owner.Pets[0] == stray)
	is.Equal(stray.Name, "stray")
}

func TestCollectionOrderFollowsRequest(t *testing.T) {
	is, p, _ := testSetup(t)

	first := &Pet{ID: 1}
	second := &Pet{ID: 2}
	owner := &Owner{Pets: []*Pet{first, second}}

	err := p.Populate(context.Background(), owner, values.Map{
		"pets": []any{map[string]any{"id": 2}, map[string]any{"id": 1}},
	}, "")
	is.NoErr(err)

	is.True(owner.Pets[0] == second)
	is.True(owner.Pets[1] == first)
}

func TestPruneIsAbortedWhenIdentifiersAreUnreadable(t *testing.T) {
	is, p, _ := testSetup(t)

	d, err := p.md.Descriptor("Tag")
	is.NoErr(err)

	existing := []any{&Tag{Label: "old"}}
	kept, err := p.prune(d, existing, []values.Map{{"code": "x"}})
	is.NoErr(err)

	is.Equal(len(kept), 1) // the original collection should be returned as is
	is.True(kept[0] == existing[0])
}

func TestAssociationsBackToOriginatingTypeAreSkipped(t *testing.T) {
	is, p, _ := testSetup(t)

	pet := &Pet{}
	err := p.Populate(context.Background(), pet, values.Map{
		"name":  "Doris",
		"owner": map[string]any{"name": "Alice"},
	}, "Owner")
	is.NoErr(err)

	is.Equal(pet.Name, "Doris")
	is.True(pet.Owner == nil) // should not descend back into the owner
}

func TestPolymorphicAssociationIsCreatedFromDiscriminator(t *testing.T) {
	is, p, _ := testSetup(t)

	owner := &Owner{}
	err := p.Populate(context.Background(), owner, values.Map{
		"favorite": map[string]any{"kind": "dog", "name": "Fido"},
	}, "")
	is.NoErr(err)

	dog, ok := owner.Favorite.(*Dog)
	is.True(ok) // should be a dog
	is.Equal(dog.Name, "Fido")
}

func TestCreateNewInstanceDiscriminatorErrors(t *testing.T) {
	is, p, _ := testSetup(t)

	_, err := p.CreateNewInstance("Animal", values.Map{"name": "Tweety"})
	is.True(errors.Is(err, binderrors.ErrDiscriminatorMissing))

	_, err = p.CreateNewInstance("Animal", values.Map{"kind": "bird"})
	is.True(errors.Is(err, binderrors.ErrDiscriminatorUnknown))

	v, err := p.CreateNewInstance("Animal", values.Map{"kind": "cat"})
	is.NoErr(err)
	_, ok := v.(*Cat)
	is.True(ok)
}

func TestDiscriminatorErrorsPropagateFromPopulate(t *testing.T) {
	is, p, _ := testSetup(t)

	err := p.Populate(context.Background(), &Owner{}, values.Map{
		"favorite": map[string]any{"kind": "bird"},
	}, "")
	is.True(errors.Is(err, binderrors.ErrDiscriminatorUnknown))
}

func TestPopulateIsIdempotent(t *testing.T) {
	is, p, _ := testSetup(t)

	owner := &Owner{Pets: []*Pet{{ID: 1, Name: "one"}, {ID: 3}}}
	bag := values.Map{
		"name":    "Alice",
		"age":     "42",
		"address": map[string]any{"street": "Storgatan 1"},
		"pets": []any{
			map[string]any{"id": 1, "name": "a"},
			map[string]any{"id": 2, "name": "b"},
		},
	}

	is.NoErr(p.Populate(context.Background(), owner, bag, ""))
	pets := append([]*Pet{}, owner.Pets...)
	address := *owner.Address

	is.NoErr(p.Populate(context.Background(), owner, bag, ""))

	is.Equal(owner.Name, "Alice")
	is.Equal(owner.Age, 42)
	is.Equal(*owner.Address, address)
	is.Equal(len(owner.Pets), len(pets))
	for i := range pets {
		is.True(owner.Pets[i] == pets[i]) // members should keep their identity
		is.Equal(owner.Pets[i].Name, pets[i].Name)
	}
}

func TestMaxDepthIsEnforced(t *testing.T) {
	is, _, repo := testSetup(t)
	p := New(newRegistry(is), accessor.New(), repo, WithMaxDepth(0))

	err := p.Populate(context.Background(), &Owner{}, values.Map{
		"address": map[string]any{"street": "Storgatan 1"},
	}, "")
	is.True(errors.Is(err, binderrors.ErrMaxDepth))
}

func TestNonObjectAssociationValueFails(t *testing.T) {
	is, p, _ := testSetup(t)

	err := p.Populate(context.Background(), &Owner{}, values.Map{"pets": "all of them"}, "")
	is.True(errors.Is(err, binderrors.ErrInvalidFieldValue))
}

func testSetup(t *testing.T) (*is.I, *EntityPopulator, *repository.InMemory) {
	is := is.New(t)

	md := newRegistry(is)
	pa := accessor.New()
	repo := repository.NewInMemory(md, pa)

	return is, New(md, pa, repo), repo
}

func newRegistry(is *is.I) *metadata.Registry {
	registry := metadata.NewRegistry()

	id := metadata.Field{Name: "id", Kind: metadata.Integer}
	name := metadata.Field{Name: "name", Kind: metadata.String}

	is.NoErr(registry.Register(metadata.Descriptor{
		Type:        "Owner",
		Identifiers: []string{"id"},
		Fields: []metadata.Field{
			id, name,
			{Name: "age", Kind: metadata.Integer},
			{Name: "active", Kind: metadata.Boolean},
			{Name: "born", Kind: metadata.Date},
			{Name: "status", Kind: metadata.Enum, Values: []string{"active", "inactive"}},
		},
		Associations: []metadata.Association{
			{Name: "address", TargetType: "Address", Cardinality: metadata.One},
			{Name: "pets", TargetType: "Pet", Cardinality: metadata.Many, Inverse: true, MappedBy: "owner"},
			{Name: "favorite", TargetType: "Animal", Cardinality: metadata.One},
		},
	}, func() any { return &Owner{} }))

	is.NoErr(registry.Register(metadata.Descriptor{
		Type:        "Address",
		Identifiers: []string{"id"},
		Fields:      []metadata.Field{id, {Name: "street", Kind: metadata.String}},
	}, func() any { return &Address{} }))

	is.NoErr(registry.Register(metadata.Descriptor{
		Type:         "Pet",
		Identifiers:  []string{"id"},
		Fields:       []metadata.Field{id, name},
		Associations: []metadata.Association{{Name: "owner", TargetType: "Owner", Cardinality: metadata.One}},
	}, func() any { return &Pet{} }))

	is.NoErr(registry.Register(metadata.Descriptor{
		Type:        "Animal",
		Identifiers: []string{"id"},
		Fields:      []metadata.Field{id, name},
		Discriminator: &metadata.Discriminator{
			Column: "kind",
			Map:    map[string]string{"cat": "Cat", "dog": "Dog"},
		},
	}, nil))

	is.NoErr(registry.Register(metadata.Descriptor{Type: "Cat", Extends: "Animal"}, func() any { return &Cat{} }))
	is.NoErr(registry.Register(metadata.Descriptor{Type: "Dog", Extends: "Animal"}, func() any { return &Dog{} }))

	is.NoErr(registry.Register(metadata.Descriptor{
		Type:        "Tag",
		Identifiers: []string{"code"},
		Fields:      []metadata.Field{{Name: "code", Kind: metadata.String}, {Name: "label", Kind: metadata.String}},
	}, func() any { return &Tag{} }))

	return registry
}
