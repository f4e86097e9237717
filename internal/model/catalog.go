package model

// ProductType is one entry of the closed product catalog.
type ProductType string

const (
	ProductFlatBottomPouch            ProductType = "Sachets fond plat"
	ProductSquareBottomNoHandles      ProductType = "Sac fond carré sans poignées"
	ProductSquareBottomFlatHandles    ProductType = "Sac fond carré avec poignées plates"
	ProductSquareBottomTwistedHandles ProductType = "Sac fond carré avec poignées torsadées"
)

// ProductCatalog is the ordered list of everything the plant makes.
var ProductCatalog = []ProductType{
	ProductFlatBottomPouch,
	ProductSquareBottomNoHandles,
	ProductSquareBottomFlatHandles,
	ProductSquareBottomTwistedHandles,
}

// ProductTypes returns the catalog as plain strings.
func ProductTypes() []string {
	out := make([]string, len(ProductCatalog))
	for i, p := range ProductCatalog {
		out[i] = string(p)
	}
	return out
}

// InCatalog reports whether p is exactly one of the catalog entries.
func (p ProductType) InCatalog() bool {
	for _, c := range ProductCatalog {
		if p == c {
			return true
		}
	}
	return false
}
