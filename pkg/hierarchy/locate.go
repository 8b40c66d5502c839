package hierarchy

// FindCompanyByID searches the forest depth-first and returns the first node
// carrying id. Absence is reported through the boolean, never a panic.
func FindCompanyByID(forest *Forest, id int) (*Node, bool) {
	var found *Node
	forest.Walk(func(n *Node) bool {
		if n.Company.ID == id {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}
