// token 签发写接口使用的JWT（jwt.enabled=true时需要）
//
// 用法：
//
//	go run ./cmd/token -sub librarian
//	curl -H "Authorization: Bearer $(go run ./cmd/token -sub librarian)" ...
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/pkg/jwt"
)

func main() {
	subject := flag.String("sub", "admin", "Token的subject（调用方标识）")
	expire := flag.Duration("expire", 0, "有效期，默认使用jwt.access_token_expire")
	verbose := flag.Bool("v", false, "同时输出过期时间")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	ttl := cfg.JWT.AccessTokenExpire
	if *expire > 0 {
		ttl = *expire
	}

	token, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, ttl).GenerateToken(*subject)
	if err != nil {
		log.Fatalf("签发Token失败: %v", err)
	}

	fmt.Println(token.AccessToken)
	if *verbose {
		fmt.Fprintf(os.Stderr, "subject=%s expires_at=%s\n", *subject, token.ExpiresAt.Format(time.RFC3339))
	}
}
