package rules

// PairingKey derives the canonical identity of an unordered user pair.
// Identifiers are ordered lexicographically before joining, so both
// sides of the pair compute the same key and converge on one record.
func PairingKey(idA, idB string) string {
	a, b := OrderPair(idA, idB)
	return a + "_" + b
}

// OrderPair returns the two identifiers in their canonical order.
func OrderPair(idA, idB string) (string, string) {
	if idB < idA {
		return idB, idA
	}
	return idA, idB
}
