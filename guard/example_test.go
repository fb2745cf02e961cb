package guard_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/chatguard/guard"
)

func ExampleGuard_Do() {
	g := guard.New(guard.Config{})
	file := guard.File{Name: "report.pdf", Size: 1 << 20, LastModified: time.Unix(1700000000, 0)}

	upload := func(ctx context.Context) error {
		fmt.Println("uploading", file.Name)
		return nil
	}

	_ = g.Do(context.Background(), file, upload)
	err := g.Do(context.Background(), file, upload)
	fmt.Println(errors.Is(err, guard.ErrDuplicate))
	// Output:
	// uploading report.pdf
	// true
}
