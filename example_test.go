package authstore_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/starshipcosmos/authstore"
	"github.com/starshipcosmos/authstore/principal"
	"github.com/starshipcosmos/authstore/session"
)

// ExampleNewCompanyStore signs a demo company in and restores the session in a
// second store sharing the same backend.
func ExampleNewCompanyStore() {
	ctx := context.Background()
	backend := session.NewMemoryBackend()

	store, _ := authstore.NewCompanyStore(ctx, backend)
	_ = store.WaitReady(ctx)

	company, err := store.SignIn(ctx, "admin@techcorp.com", "demo123")
	if err != nil {
		fmt.Println("sign in:", err)
		return
	}
	fmt.Println(company.Name)
	_ = store.Close()

	restored, _ := authstore.NewCompanyStore(ctx, backend)
	_ = restored.WaitReady(ctx)
	p, ok := restored.Principal()
	fmt.Println(ok, p.ID)

	// Output:
	// TechCorp Solutions
	// true company-1
}

// ExampleStore_SignIn shows how rejections surface as display messages.
func ExampleStore_SignIn() {
	ctx := context.Background()
	store, _ := authstore.NewAdminStore(ctx, session.NewMemoryBackend())
	defer store.Close()
	_ = store.WaitReady(ctx)

	_, err := store.SignIn(ctx, "superadmin@cosmos.com", "wrong")
	fmt.Println(errors.Is(err, authstore.ErrAuthentication))
	fmt.Println(store.State().Error)

	// Output:
	// true
	// Invalid password. Demo password is admin123
}

// ExampleNew wires a custom authenticator into a user store.
func ExampleNew() {
	ctx := context.Background()
	auth := authstore.AuthenticatorFunc[principal.EndUser](func(ctx context.Context, identifier, secret string) (principal.EndUser, error) {
		return principal.EndUser{ID: "user-1", Email: identifier}, nil
	})

	store, err := authstore.New[principal.EndUser]().
		WithNamespace(authstore.UserNamespace).
		WithBackend(session.NewMemoryBackend()).
		WithAuthenticator(auth).
		WithMetricsEnabled(true).
		Build(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer store.Close()
	_ = store.WaitReady(ctx)

	unsubscribe := store.Subscribe(func(s authstore.State[principal.EndUser]) {
		fmt.Println(s.Phase)
	})
	defer unsubscribe()

	_, _ = store.SignIn(ctx, "ada@example.com", "s3cret!")

	// Output:
	// authenticating
	// authenticated
}
