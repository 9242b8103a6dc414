package domain

type Category string

// Wire values accepted by the backend. "Fragnance" is spelled the way the
// backend stores it.
const (
	CategoryTest      Category = "Test"
	CategoryInterior  Category = "Interior"
	CategoryExterior  Category = "Exterior"
	CategoryProduct   Category = "Product"
	CategoryGadget    Category = "Gadget"
	CategoryFragrance Category = "Fragnance"
)

var categories = map[Category]struct{}{
	CategoryTest:      {},
	CategoryInterior:  {},
	CategoryExterior:  {},
	CategoryProduct:   {},
	CategoryGadget:    {},
	CategoryFragrance: {},
}

func (c Category) IsValid() bool {
	_, ok := categories[c]
	return ok
}

func (c Category) String() string {
	return string(c)
}
