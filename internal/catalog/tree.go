package catalog

import "github.com/fjod/go_cart/storefront/internal/domain"

// Descendants returns every category below root in depth-first pre-order,
// root itself excluded. The walk is iterative.
func Descendants(root domain.Category) []domain.Category {
	return walk(root.Children)
}

// Flatten returns every category of the forest in depth-first pre-order.
func Flatten(roots []domain.Category) []domain.Category {
	return walk(roots)
}

// FindCategory returns the category with id anywhere in the forest.
func FindCategory(roots []domain.Category, id string) (domain.Category, bool) {
	for _, c := range walk(roots) {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Category{}, false
}

func walk(nodes []domain.Category) []domain.Category {
	var out []domain.Category
	stack := make([]domain.Category, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, nodes[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}
