package credAuth_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	credAuth "github.com/MrEthical07/credAuth"
	"github.com/MrEthical07/credAuth/password"
	"github.com/MrEthical07/credAuth/userstore/memory"
)

func Example() {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := credAuth.DefaultConfig()
	cfg.JWT.Secret = "example-secret-0123456789abcdef0123"
	cfg.Pepper.Current = "pepper-1"
	cfg.Password.Base = password.Config{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Password.Strong = password.Config{Memory: 8192, Time: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Throttle.FailedDelay = 0

	engine, err := credAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(memory.New()).
		Build()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer engine.Close(context.Background())

	ctx := credAuth.WithClientIP(context.Background(), "198.51.100.4")

	user, err := engine.Register(ctx, credAuth.RegisterRequest{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "correct-horse",
		ConfirmPassword: "correct-horse",
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("registered", user.Name)

	_, err = engine.Authenticate(ctx, "alice@example.com", "wrong-horse")
	fmt.Println("wrong password:", errors.Is(err, credAuth.ErrInvalidCredentials))

	res, err := engine.Authenticate(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		fmt.Println(err)
		return
	}

	claims, err := engine.ParseToken(ctx, res.Token)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("token for", claims.Name, claims.AccountID == user.ID)

	// Output:
	// registered Alice
	// wrong password: true
	// token for Alice true
}
