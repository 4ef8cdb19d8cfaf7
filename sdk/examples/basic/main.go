package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/birbparty/roost/sdk"
)

// Player is stored with the class tag "Player".
type Player struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

func main() {
	types := sdk.NewTypeRegistry()
	if err := sdk.RegisterJSON[Player](types, "Player"); err != nil {
		log.Fatalf("Failed to register Player: %v", err)
	}

	config := sdk.DefaultConfig().
		WithHost(envOr("ROOST_HOST", "http://localhost:8080")).
		WithApp(envOr("ROOST_APP_ID", "demo"), envOr("ROOST_API_KEY", "demo-key")).
		WithTimeout(10 * time.Second).
		WithTypes(types)

	svc, err := sdk.NewService(config)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	ctx := context.Background()

	// Example 1: Application-scoped objects
	fmt.Println("--- Example 1: Save and load ---")
	motd, _ := sdk.NewObject("motd", map[string]any{"text": "Welcome to the roost", "version": 3})
	resp, err := svc.Save(ctx, motd)
	if err != nil {
		log.Fatalf("Save failed: %v", err)
	}
	if !resp.WasSuccess() {
		log.Fatalf("Backend rejected save (%d): %v", resp.StatusCode(), resp.Errors())
	}
	fmt.Printf("✓ motd created=%v updated=%v\n", resp.WasCreated("motd"), resp.WasUpdated("motd"))

	loaded, err := svc.Load(ctx, nil, "motd")
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}
	if obj, ok := loaded.Object("motd"); ok {
		text, _ := obj.GetString("text")
		fmt.Printf("✓ motd: %s\n", text)
	}

	// Example 2: Typed objects
	fmt.Println("\n--- Example 2: Typed view ---")
	players := sdk.NewTyped[Player](svc, "Player")
	if _, err := players.SaveAll(ctx, map[string]Player{
		"alice": {Name: "Alice", Level: 12},
		"bob":   {Name: "Bob", Level: 4},
	}); err != nil {
		log.Fatalf("SaveAll failed: %v", err)
	}

	query := sdk.Filter("level").GreaterThan(10).SearchQuery()
	sort, _ := sdk.NewSortOptions("level", sdk.Descending)
	found, _, err := players.Search(ctx, query, sdk.NewRequestOptions(sort))
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	for _, p := range found {
		fmt.Printf("✓ %s is level %d\n", p.Name, p.Level)
	}

	// Example 3: User scope
	fmt.Println("\n--- Example 3: User scope ---")
	login, err := svc.Login(ctx, envOr("ROOST_EMAIL", "bob@example.com"), envOr("ROOST_PASSWORD", "hunter2"))
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	token := login.SessionToken()
	if !token.IsValid() {
		log.Printf("Login rejected: %s", login.ErrorMessage("login"))
		return
	}
	user, err := svc.ForSession(token)
	if err != nil {
		log.Fatalf("ForSession failed: %v", err)
	}

	settings, _ := sdk.NewObject("settings", map[string]any{"theme": "dark"})
	if _, err := user.Save(ctx, settings); err != nil {
		log.Fatalf("User save failed: %v", err)
	}
	fmt.Printf("✓ settings stored in the %s store\n", settings.StoreIdentifier().Level())

	// Objects bound to the user store cannot be written through the
	// application scope.
	_, err = svc.Save(ctx, settings)
	if errors.Is(err, sdk.ErrScopeMismatch) {
		fmt.Println("✓ Scope mismatch rejected before sending")
	}

	// Example 4: Error handling
	fmt.Println("\n--- Example 4: Error handling ---")
	if _, err := svc.Search(ctx, "", nil); errors.Is(err, sdk.ErrInvalidOption) {
		fmt.Println("✓ Empty search query rejected")
	}
	var sdkErr *sdk.Error
	if _, err := svc.Load(ctx, nil, "motd"); errors.As(err, &sdkErr) {
		fmt.Printf("Request failed (%s, retryable=%v)\n", sdkErr.Type, sdk.IsRetryable(err))
	}

	if _, err := svc.Logout(ctx, token); err != nil {
		log.Printf("Logout failed: %v", err)
	}
	fmt.Println("\n✅ All examples completed")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
