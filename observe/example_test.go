package observe_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/templategen/observe"
)

func ExampleBuildMeta_SpanName() {
	meta := observe.BuildMeta{Generator: "generator-node:app", Key: "3f2a"}
	fmt.Println(meta.SpanName())
	// Output:
	// template.build.generator-node:app
}

func ExampleNewObserver() {
	obs, err := observe.NewObserver(context.Background(), observe.Config{
		ServiceName: "templategen",
		Logging:     observe.LoggingConfig{Enabled: false},
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer obs.Shutdown(context.Background())

	mw, _ := observe.MiddlewareFromObserver(obs)
	build := mw.Wrap(func(ctx context.Context, meta observe.BuildMeta) (string, error) {
		return "/var/cache/templategen/" + meta.Key + ".zip", nil
	})

	path, _ := build(context.Background(), observe.BuildMeta{Generator: "pkg:app", Key: "k1"})
	fmt.Println(path)
	// Output:
	// /var/cache/templategen/k1.zip
}
