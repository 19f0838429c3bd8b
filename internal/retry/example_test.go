package retry_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coral-mesh/cygdb/internal/retry"
)

func ExampleDo() {
	errNotStopped := errors.New("not stopped yet")
	polls := 0

	err := retry.Do(context.Background(), retry.Config{
		MaxRetries:     5,
		InitialBackoff: time.Millisecond,
	}, func() error {
		polls++
		if polls < 3 {
			return errNotStopped
		}
		return nil
	}, func(err error) bool {
		return errors.Is(err, errNotStopped)
	})

	fmt.Println(err, polls)
	// Output: <nil> 3
}
