// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// ErrNotImage はURLの指す先が画像ではない場合のエラー。
var ErrNotImage = errors.New("url does not point to an image")

// ErrImageTooLarge は画像がサイズ上限を超える場合のエラー。
var ErrImageTooLarge = errors.New("image exceeds size limit")

// sniffLen はContent-Typeが無い場合に読み取る先頭バイト数。
const sniffLen = 512

var allowedSchemes = []string{"http", "https"}

// blockedNetworks は静的検証で拒否するネットワーク範囲。
// 名前解決後のIPはsafeurlのDialerが検証する。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16", // クラウドメタデータIPを含む
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// ImageProbe はユーザーが入力した画像URLを取得して、実際に画像を指しているかを確認する。
// レシピ作成時に、外部から見えない内部ホストへのリクエストを防ぎつつ利用する。
type ImageProbe struct {
	client   *http.Client
	maxSize  int64
	validate func(rawURL string) error
}

// NewImageProbe はsafeurlのHTTPクライアントを使うImageProbeを生成する。
// プライベートIP、ループバック、リンクローカル宛ての接続はDialerレベルで拒否される。
func NewImageProbe(timeout time.Duration, maxSize int64) *ImageProbe {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return &ImageProbe{
		client:   safeurl.Client(config).Client,
		maxSize:  maxSize,
		validate: ValidateURL,
	}
}

// Check はrawURLが取得可能な画像を指しているかを確認する。
// Content-Typeがimage/*でない場合は先頭バイトから判定する。
func (p *ImageProbe) Check(ctx context.Context, rawURL string) error {
	if err := p.validate(rawURL); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}
	if p.maxSize > 0 && resp.ContentLength > p.maxSize {
		return ErrImageTooLarge
	}

	ct := resp.Header.Get("Content-Type")
	if strings.HasPrefix(strings.ToLower(ct), "image/") {
		return nil
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, sniffLen))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		return ErrNotImage
	}
	return nil
}

// ValidateURL は名前解決を伴わない静的なURL検証を行う。
// http/https以外のスキーム、空ホスト、ブロック対象のIPとlocalhostを拒否する。
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %q", scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
