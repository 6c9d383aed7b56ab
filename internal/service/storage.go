package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/netsessionpro/netsessionpro/internal/config"
	"github.com/netsessionpro/netsessionpro/pkg/logger"
)

// ArtifactStore 采集产物存储：把本地输出文件归档到目标后端，
// 返回可追溯的 URI
type ArtifactStore interface {
	Store(ctx context.Context, localPath, objectName string) (string, error)
}

// NewArtifactStore 按配置创建存储器；minio 后端初始化失败时回退本地
func NewArtifactStore(cfg *config.Config) ArtifactStore {
	if strings.EqualFold(strings.TrimSpace(cfg.Storage.Backend), "minio") {
		if m := initMinioStore(cfg); m != nil {
			return &fallbackStore{primary: m, local: &localStore{}}
		}
		logger.Warn("MinIO backend selected but client not initialized; using local storage")
	}
	return &localStore{}
}

// localStore 本地存储：文件已在输出目录，原样返回 file:// URI
type localStore struct{}

func (s *localStore) Store(ctx context.Context, localPath, objectName string) (string, error) {
	return "file://" + localPath, nil
}

// fallbackStore 先走主后端，失败回退本地并记录预警
type fallbackStore struct {
	primary ArtifactStore
	local   *localStore
}

func (s *fallbackStore) Store(ctx context.Context, localPath, objectName string) (string, error) {
	uri, err := s.primary.Store(ctx, localPath, objectName)
	if err != nil {
		logger.Warn("MinIO store failed; falling back to local", "error", err)
		return s.local.Store(ctx, localPath, objectName)
	}
	return uri, nil
}

// minioStore MinIO 对象存储
type minioStore struct {
	cfg           *config.Config
	client        *minio.Client
	endpoint      string
	bucketEnsured bool
}

// initMinioStore 初始化 MinIO 客户端并做一次轻量的连通性与 bucket 校验
func initMinioStore(cfg *config.Config) *minioStore {
	host := strings.TrimSpace(cfg.Storage.Minio.Host)
	port := cfg.Storage.Minio.Port
	if host == "" || port <= 0 {
		logger.Warn("MinIO configuration incomplete; host/port missing")
		return nil
	}
	endpoint := fmt.Sprintf("%s:%d", host, port)

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 5 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.Storage.Minio.AccessKey, cfg.Storage.Minio.SecretKey, ""),
		Secure:    cfg.Storage.Minio.Secure,
		Transport: transport,
	})
	if err != nil {
		logger.Error("MinIO client initialization failed", "error", err)
		return nil
	}

	s := &minioStore{cfg: cfg, client: client, endpoint: endpoint}

	bucket := strings.TrimSpace(cfg.Storage.Minio.Bucket)
	if bucket == "" {
		logger.Warn("MinIO bucket not configured")
		return s
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.ensureBucket(ctx, bucket, 2); err != nil {
		logger.Warn("MinIO bucket ensure at init failed", "error", err)
	} else {
		s.bucketEnsured = true
	}
	return s
}

// Store 将本地文件上传为对象，带快速连通性探测与指数退避重试
func (s *minioStore) Store(ctx context.Context, localPath, objectName string) (string, error) {
	bucket := strings.TrimSpace(s.cfg.Storage.Minio.Bucket)
	if bucket == "" {
		return "", fmt.Errorf("minio bucket not configured")
	}

	if err := s.fastConnectivityCheck(ctx); err != nil {
		return "", fmt.Errorf("minio connectivity failed to %s: %w", s.endpoint, err)
	}

	if !s.bucketEnsured {
		if err := s.ensureBucket(ctx, bucket, 3); err != nil {
			return "", fmt.Errorf("minio ensure bucket failed: %w", err)
		}
		s.bucketEnsured = true
	}

	var lastErr error
	attempts := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i := 0; i < len(attempts); i++ {
		attemptCtx, cancel := s.attemptContext(ctx, attempts[i])
		_, err := s.client.FPutObject(attemptCtx, bucket, objectName, localPath,
			minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
		cancel()
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		time.Sleep(attempts[i])
	}
	if lastErr != nil {
		return "", fmt.Errorf("minio put object failed after retries: %w", lastErr)
	}

	return "minio://" + path.Join(bucket, objectName), nil
}

// fastConnectivityCheck 使用 TCP 直连做快速连通性校验
func (s *minioStore) fastConnectivityCheck(parent context.Context) error {
	d := &net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(parent, "tcp", s.endpoint)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

// ensureBucket 校验并创建 bucket，支持有限重试
func (s *minioStore) ensureBucket(parent context.Context, bucket string, retries int) error {
	var lastErr error
	for i := 0; i <= retries; i++ {
		ctx, cancel := s.attemptContext(parent, 10*time.Second)
		exists, err := s.client.BucketExists(ctx, bucket)
		cancel()
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		if exists {
			return nil
		}
		ctx2, cancel2 := s.attemptContext(parent, 10*time.Second)
		mkErr := s.client.MakeBucket(ctx2, bucket, minio.MakeBucketOptions{})
		cancel2()
		if mkErr != nil {
			lastErr = mkErr
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("bucket ensure failed for %s", bucket)
}

// attemptContext 构造限时上下文，尊重父上下文的剩余截止时间
func (s *minioStore) attemptContext(parent context.Context, prefer time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := parent.Deadline(); ok {
		remain := time.Until(deadline)
		if remain > time.Second && prefer < remain {
			return context.WithTimeout(parent, prefer)
		}
		if remain > time.Second {
			return context.WithTimeout(parent, remain-time.Second)
		}
		return context.WithTimeout(parent, time.Second)
	}
	return context.WithTimeout(parent, prefer)
}
