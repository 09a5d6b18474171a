package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// 并发切换同一帖子的点赞，结束后核对计数器与明细是否一致

var (
	baseURL    = flag.String("url", "http://localhost:8080", "server base url")
	totalUsers = flag.Int("users", 200, "concurrent users")
	toggles    = flag.Int("toggles", 3, "toggles per user")
	planTier   = flag.String("tier", "plus", "plan tier to buy so users can react")
)

var httpClient *http.Client

func init() {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxIdleConnsPerHost = 2000
	t.MaxConnsPerHost = 2000
	httpClient = &http.Client{Transport: t, Timeout: 10 * time.Second}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func main() {
	flag.Parse()
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "压测失败: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	suffix := time.Now().Format("150405")

	// 1. 准备用户：注册登录后购买套餐
	tokens := make([]string, *totalUsers)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(50)
	for i := range tokens {
		i := i
		g.Go(func() error {
			tok, err := signup(gctx, fmt.Sprintf("stress_%s_%d", suffix, i))
			tokens[i] = tok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	planID, err := findPlan(ctx, tokens[0])
	if err != nil {
		return err
	}
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(50)
	for _, tok := range tokens {
		tok := tok
		g.Go(func() error {
			upgrade := map[string]any{"planId": planID, "paymentMethod": "credit_card"}
			return call(gctx, http.MethodPost, "/payments/process", tok, upgrade, nil)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}

	// 2. 第一个用户发帖
	var post struct {
		ID string `json:"id"`
	}
	if err := call(ctx, http.MethodPost, "/posts", tokens[0], map[string]any{"content": "stress target " + suffix}, &post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	fmt.Printf("开始压测：%d 个用户，每人切换 %d 次 (post: %s)\n", *totalUsers, *toggles, post.ID)

	// 3. 并发切换
	var okCount, failCount atomic.Int64
	start := time.Now()
	g, gctx = errgroup.WithContext(ctx)
	for _, tok := range tokens {
		tok := tok
		g.Go(func() error {
			for i := 0; i < *toggles; i++ {
				err := call(gctx, http.MethodPost, "/posts/"+post.ID+"/reactions/toggle", tok, map[string]any{"reactionType": "like"}, nil)
				if err != nil {
					failCount.Add(1)
					continue
				}
				okCount.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	duration := time.Since(start)

	// 4. 核对
	var summary []struct {
		ReactionType string `json:"reactionType"`
		Count        int64  `json:"count"`
	}
	if err := call(ctx, http.MethodGet, "/posts/"+post.ID+"/reactions/summary", tokens[0], nil, &summary); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	var counted struct {
		ReactionsCount int64 `json:"reactionsCount"`
	}
	if err := call(ctx, http.MethodGet, "/posts/"+post.ID, tokens[0], nil, &counted); err != nil {
		return fmt.Errorf("get post: %w", err)
	}
	var rows int64
	for _, s := range summary {
		rows += s.Count
	}

	total := int64(*totalUsers * *toggles)
	fmt.Println("--------------------------------------------------")
	fmt.Printf("耗时: %v, QPS: %.2f\n", duration, float64(total)/duration.Seconds())
	fmt.Printf("成功: %d, 失败: %d\n", okCount.Load(), failCount.Load())
	fmt.Printf("reactions_count: %d, 明细行数: %d\n", counted.ReactionsCount, rows)
	fmt.Println("--------------------------------------------------")
	if rows != counted.ReactionsCount {
		return fmt.Errorf("counter drift: %d != %d", counted.ReactionsCount, rows)
	}
	return nil
}

func findPlan(ctx context.Context, token string) (string, error) {
	var plans []struct {
		ID   string `json:"id"`
		Tier string `json:"tier"`
	}
	if err := call(ctx, http.MethodGet, "/payments/plans", token, nil, &plans); err != nil {
		return "", fmt.Errorf("list plans: %w", err)
	}
	for _, p := range plans {
		if p.Tier == *planTier {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("no active %s plan", *planTier)
}

func signup(ctx context.Context, username string) (string, error) {
	const password = "stress-pass-123"
	reg := map[string]any{"username": username, "password": password, "email": username + "@example.com"}
	if err := call(ctx, http.MethodPost, "/auth/register", "", reg, nil); err != nil {
		return "", fmt.Errorf("register %s: %w", username, err)
	}
	var pair struct {
		Access string `json:"access"`
	}
	if err := call(ctx, http.MethodPost, "/auth/login", "", map[string]any{"username": username, "password": password}, &pair); err != nil {
		return "", fmt.Errorf("login %s: %w", username, err)
	}
	return pair.Access, nil
}

func call(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, *baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("status %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || env.Code != 0 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
