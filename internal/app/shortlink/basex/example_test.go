package basex_test

import (
	"errors"
	"fmt"

	"urlshortener.local/internal/app/shortlink/basex"
)

func ExampleEncode() {
	pool := basex.MustPool("abcdefghij")
	token, _ := basex.Encode(105, pool)
	fmt.Println(token)
	// Output: baf
}

func ExampleDecode() {
	pool := basex.MustPool("abcdefghij")
	id, _ := basex.Decode("baf", pool)
	fmt.Println(id)

	_, err := basex.Decode("9", pool)
	fmt.Println(errors.Is(err, basex.ErrInvalidToken))
	// Output:
	// 105
	// true
}

func ExampleBuildPool() {
	pool, err := basex.BuildPool("0123456789ABCDEFGHIJ", basex.Ambiguous)
	if err != nil {
		panic(err)
	}
	fmt.Println(pool, pool.Len())
	// Output: 23456789ABCDEFGHJ 17
}
