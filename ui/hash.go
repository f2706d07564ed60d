package ui

const hashAffix = 7

// DisplayableHash shortens a transaction hash to its first and last seven
// characters.
func DisplayableHash(hash string) string {
	first := hash
	if len(first) > hashAffix {
		first = first[:hashAffix]
	}
	last := hash
	if len(last) > hashAffix {
		last = last[len(last)-hashAffix:]
	}
	return first + "..." + last
}

func ExplorerURL(prefix, hash string) string {
	return prefix + hash
}
