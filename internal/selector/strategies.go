package selector

import (
	"strings"

	"github.com/maltedev/sameday-crawler/internal/browser"
	"github.com/maltedev/sameday-crawler/internal/parser"
)

// Elements matches when xpath finds at least one element under the scope.
func Elements(xpath string) Strategy[[]browser.Element] {
	return StrategyFunc[[]browser.Element]{
		Label: xpath,
		Fn: func(scope browser.Scope) ([]browser.Element, bool, error) {
			els, err := scope.FindAll(xpath)
			if err != nil {
				return nil, false, err
			}
			return els, len(els) > 0, nil
		},
	}
}

// LinksContaining keeps the elements matched by selector whose href contains fragment.
// Links whose href cannot be read are dropped.
func LinksContaining(selector, fragment string) Strategy[[]browser.Element] {
	return StrategyFunc[[]browser.Element]{
		Label: selector + "[href*=" + fragment + "]",
		Fn: func(scope browser.Scope) ([]browser.Element, bool, error) {
			links, err := scope.FindAll(selector)
			if err != nil {
				return nil, false, err
			}

			var matched []browser.Element
			for _, link := range links {
				href, err := link.Attribute("href")
				if err != nil {
					continue
				}
				if strings.Contains(href, fragment) {
					matched = append(matched, link)
				}
			}
			return matched, len(matched) > 0, nil
		},
	}
}

// Text reads the trimmed text of the first element matched by xpath.
func Text(xpath string) Strategy[string] {
	return StrategyFunc[string]{
		Label: xpath,
		Fn: func(scope browser.Scope) (string, bool, error) {
			el, err := first(scope, xpath)
			if err != nil || el == nil {
				return "", false, err
			}

			text, err := el.Text()
			if err != nil {
				return "", false, err
			}
			text = strings.TrimSpace(text)
			return text, text != "", nil
		},
	}
}

// LongestText picks the longest non-blank text among the elements matched by xpath.
func LongestText(xpath string) Strategy[string] {
	return StrategyFunc[string]{
		Label: "longest " + xpath,
		Fn: func(scope browser.Scope) (string, bool, error) {
			els, err := scope.FindAll(xpath)
			if err != nil {
				return "", false, err
			}

			var longest string
			for _, el := range els {
				text, err := el.Text()
				if err != nil {
					continue
				}
				if text = strings.TrimSpace(text); len(text) > len(longest) {
					longest = text
				}
			}
			return longest, longest != "", nil
		},
	}
}

// ImageSet reads the first image matched by xpath, preferring its srcset over src.
func ImageSet(xpath string) Strategy[string] {
	return image(xpath, true)
}

// ImageSource reads only the src attribute of the first image matched by xpath.
func ImageSource(xpath string) Strategy[string] {
	return image(xpath, false)
}

func image(xpath string, useSrcset bool) Strategy[string] {
	label := xpath + "@src"
	if useSrcset {
		label = xpath + "@srcset"
	}

	return StrategyFunc[string]{
		Label: label,
		Fn: func(scope browser.Scope) (string, bool, error) {
			el, err := first(scope, xpath)
			if err != nil || el == nil {
				return "", false, err
			}

			var srcset string
			if useSrcset {
				if srcset, err = el.Attribute("srcset"); err != nil {
					return "", false, err
				}
			}
			src, err := el.Attribute("src")
			if err != nil {
				return "", false, err
			}

			url := parser.ImageURL(srcset, src)
			return url, url != "", nil
		},
	}
}

// Labeled scans the elements matched by xpath in order and returns the token that
// follows marker in the first element whose text carries it.
func Labeled(xpath, marker string) Strategy[string] {
	return StrategyFunc[string]{
		Label: xpath,
		Fn: func(scope browser.Scope) (string, bool, error) {
			els, err := scope.FindAll(xpath)
			if err != nil {
				return "", false, err
			}

			for _, el := range els {
				text, err := el.Text()
				if err != nil {
					continue
				}
				if value, ok := parser.MarkerValue(text, marker); ok {
					return value, true, nil
				}
			}
			return "", false, nil
		},
	}
}

func first(scope browser.Scope, xpath string) (browser.Element, error) {
	els, err := scope.FindAll(xpath)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}
