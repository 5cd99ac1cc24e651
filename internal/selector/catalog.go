package selector

import (
	"log/slog"

	"github.com/maltedev/sameday-crawler/internal/browser"
	"github.com/maltedev/sameday-crawler/internal/parser"
)

// Listing page rules, highest priority first.
const (
	ProductButtonLink   = "//a[@role='button' and contains(@href, '/store/costco/products/')]"
	ProductLink         = "//a[contains(@href, '/store/costco/products/')]"
	ProductCardTitle    = "//div[contains(@class, 'e-19idom')]/ancestor::a"
	ProductCardBody     = "//div[contains(@class, 'e-bjn8wh')]/ancestor::a"
	ProductPriceLabel   = "//span[contains(@class, 'screen-reader-only') and contains(text(), 'Current price:')]/ancestor::a"
	ProductCardImage    = "//img[@data-testid='item-card-image']/ancestor::a"
	ProductPathFragment = "/products/"

	NameClass   = ".//div[contains(@class, 'e-147kl2c')]"
	NameHeading = ".//*[@role='heading']"
	NameAnyText = ".//*[not(contains(text(), '$'))]"

	PriceLabel      = ".//span[contains(@class, 'screen-reader-only') and contains(text(), 'Current price:')]"
	PriceDollarText = ".//*[contains(text(), '$')]"

	ImageCard = ".//img[@data-testid='item-card-image']"
	ImageAny  = ".//img"
)

// Detail page rules.
const (
	DetailIDClass      = "//div[contains(@class, 'e-16zy4wa')]"
	DetailIDDiv        = "//div[contains(text(), 'Item:')]"
	DetailIDAny        = "//*[contains(text(), 'Item:')]"
	DetailImageHero    = "//img[contains(@alt, 'hero')]"
	DetailImageClass   = "//img[contains(@class, 'product-image')]"
	DetailImageProduct = "//img[contains(@alt, 'product')]"
)

// Catalog holds the ordered rule chains for every field of the storefront.
type Catalog struct {
	Products Chain[[]browser.Element]
	// ProductLinks runs only after every Products rule came up empty.
	ProductLinks Strategy[[]browser.Element]
	Name         Chain[string]
	Price        Chain[string]
	Image        Chain[string]
	DetailID     Chain[string]
	DetailImage  Chain[string]
}

func NewCatalog(logger *slog.Logger) *Catalog {
	return &Catalog{
		Products: NewChain(FieldProducts, logger,
			Elements(ProductButtonLink),
			Elements(ProductLink),
			Elements(ProductCardTitle),
			Elements(ProductCardBody),
			Elements(ProductPriceLabel),
			Elements(ProductCardImage),
		),
		ProductLinks: LinksContaining("a", ProductPathFragment),
		Name: NewChain(FieldName, logger,
			Text(NameClass),
			Text(NameHeading),
			LongestText(NameAnyText),
		),
		Price: NewChain(FieldPrice, logger,
			Text(PriceLabel),
			Text(PriceDollarText),
		),
		Image: NewChain(FieldImage, logger,
			ImageSet(ImageCard),
			ImageSource(ImageAny),
		),
		DetailID: NewChain(FieldDetailID, logger,
			Labeled(DetailIDClass, parser.ItemMarker),
			Labeled(DetailIDDiv, parser.ItemMarker),
			Labeled(DetailIDAny, parser.ItemMarker),
		),
		DetailImage: NewChain(FieldDetailImage, logger,
			ImageSet(DetailImageHero),
			ImageSet(DetailImageClass),
			ImageSet(DetailImageProduct),
		),
	}
}
