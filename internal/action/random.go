// internal/action/random.go
package action

import "math/rand/v2"

// Intn returns a uniform integer in [0, n). It is only called with n > 1.
type Intn func(n int) int

// DefaultIntn draws from the runtime-seeded global generator.
func DefaultIntn(n int) int { return rand.IntN(n) }

// pick chooses an index among n candidates. A single candidate is chosen
// without consulting the generator.
func pick(intn Intn, n int) int {
	if n == 1 {
		return 0
	}
	i := intn(n)
	if i < 0 || i >= n {
		// Stubs in tests may return anything; keep the index in range.
		i = ((i % n) + n) % n
	}
	return i
}
