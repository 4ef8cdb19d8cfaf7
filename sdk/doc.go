// Package sdk is the Go client library for the Roost backend-as-a-service.
// It covers object storage, binary files, user accounts, push
// notifications and social-graph proxying over Roost's REST API.
//
// # Features
//
// The SDK provides:
//   - Application and user scoped services with session caching
//   - Dynamic objects that keep property order and JSON numbers intact
//   - A fluent search query builder
//   - Three transports: direct, pooled with retries, and a cancellable reactor
//   - Circuit breaker, client-side rate limiting and pluggable observers
//   - OpenTelemetry spans and logrus structured logging
//   - Typed views over object classes through a TypeRegistry
//
// # Basic Usage
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/birbparty/roost/sdk"
//	)
//
//	func main() {
//	    svc, err := sdk.NewService(sdk.DefaultConfig().
//	        WithHost("https://api.roost.example").
//	        WithApp("my-app", "secret-key"))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer svc.Close()
//
//	    ctx := context.Background()
//
//	    player, _ := sdk.NewObject("player-1", map[string]any{
//	        "name":  "Alice",
//	        "level": 7,
//	    })
//	    saved, err := svc.Save(ctx, player)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Println(saved.KeyResponse("player-1")) // created
//	}
//
// # Configuration
//
// Settings come from the fluent builder, the environment or a YAML file:
//
//	config, err := sdk.LoadConfigFromEnv(".env")
//	config = config.
//	    WithTransportMode(sdk.TransportPooled).
//	    WithMaxAttempts(5).
//	    WithCircuitBreaker(sdk.DefaultCircuitBreakerConfig())
//
// # Responses
//
// A response that arrived is never an error. Errors returned by an
// operation mean no response was obtained (network failure, timeout,
// cancellation) or the call was rejected locally before anything was
// sent. Whether the backend accepted the call is data on the response:
//
//	resp, err := svc.Load(ctx, nil, "player-1")
//	switch {
//	case err != nil:
//	    // no response
//	case !resp.WasSuccess():
//	    log.Println(resp.ErrorMessages())
//	default:
//	    obj, _ := resp.Object("player-1")
//	    log.Println(obj.GetString("name"))
//	}
//
// # Asynchronous Calls
//
// Every operation has an Async form taking two callbacks. Exactly one of
// them runs. The error return only reports local validation failures:
//
//	err := svc.LoadAsync(ctx, nil, []string{"player-1"},
//	    func(resp *sdk.LoadResponse) { log.Println(resp.SuccessKeys()) },
//	    func(err error) { log.Println("load failed:", err) })
//
// # Search
//
//	query := sdk.Filter("level").GreaterThanOrEqual(10).
//	    And("name").NotEqual("Bob").
//	    SearchQuery() // [level >= 10, name != "Bob"]
//	resp, err := svc.Search(ctx, query, nil)
//
// # Observability
//
//	collector := sdk.NewMetricsCollector()
//	config.WithObserver(sdk.NewCompositeObserver(
//	    collector,
//	    sdk.NewPrometheusObserver(prometheus.DefaultRegisterer, "game"),
//	))
//
// # Thread Safety
//
// Service, UserService and the transports are safe for concurrent use.
// Object is not; clone an object before sharing it between goroutines.
package sdk
