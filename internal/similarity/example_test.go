package similarity_test

import (
	"fmt"

	"github.com/joescharf/mergeq/internal/similarity"
)

func ExampleScore() {
	fmt.Printf("%.2f\n", similarity.Score("Possible bug in retry loop", "possible bug in retry loop"))
	fmt.Printf("%.2f\n", similarity.Score("kitten", "sitting"))
	fmt.Printf("%.2f\n", similarity.Score("", "anything"))
	// Output:
	// 1.00
	// 0.57
	// 0.00
}
