// Package erp 封装校园 ERP 统一认证的外部接口（登录代理 + 头像获取）。
//
// ERP 属于外部协作方：证书链不完整、CORS 缺失都是它的常态，
// 这里统一用跳过校验的 TLS 传输层代理掉，错误原样上抛给登录处理器。
package erp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"sudooom.im.campus/internal/config"
	"sudooom.im.campus/internal/model"
)

// ErrInvalidCredentials ERP 拒绝了用户名/密码
var ErrInvalidCredentials = errors.New("erp: invalid credentials")

// Client ERP 客户端
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient 创建 ERP 客户端
func NewClient(cfg config.ERPConfig) *Client {
	transport := &http.Transport{}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		logger: slog.Default(),
	}
}

// loginResponse ERP 登录应答
type loginResponse struct {
	Token    string `json:"token"`
	UserInfo *struct {
		UID              string `json:"uid"`
		GivenName        string `json:"givenName"`
		SN               string `json:"sn"`
		Mail             string `json:"mail"`
		DepartmentNumber string `json:"departmentNumber"`
		StudentInfo      []struct {
			FullName    string `json:"full_name"`
			RollNo      string `json:"roll_no"`
			ProgramName string `json:"program_name"`
		} `json:"studentInfo"`
	} `json:"userInfo"`
}

// profileResponse ERP 头像应答
type profileResponse struct {
	Image string `json:"image"`
}

// Login 以用户名密码登录 ERP，返回规范化的用户资料与 ERP 侧 Token（用于拉头像）
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, "", ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("erp: login returned status %d", resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, "", err
	}
	if lr.UserInfo == nil || lr.UserInfo.UID == "" {
		return nil, "", ErrInvalidCredentials
	}

	info := lr.UserInfo
	user := &model.User{
		StudentID:  info.UID,
		FullName:   info.GivenName + " " + info.SN,
		RollNo:     info.UID,
		Email:      info.Mail,
		Department: info.DepartmentNumber,
	}
	if len(info.StudentInfo) > 0 {
		s := info.StudentInfo[0]
		if s.FullName != "" {
			user.FullName = s.FullName
		}
		if s.RollNo != "" {
			user.RollNo = s.RollNo
		}
		if s.ProgramName != "" {
			user.Department = s.ProgramName
		}
	}

	return user, lr.Token, nil
}

// ProfilePhotoURL 用 ERP Token 拉取头像的原始 URL，拿不到不算错误
func (c *Client) ProfilePhotoURL(ctx context.Context, erpToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/student_profile", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+erpToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("erp: profile returned status %d", resp.StatusCode)
	}

	var pr profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", err
	}
	return pr.Image, nil
}

// FetchImage 代为下载图片（头像中转），返回字节与 Content-Type
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("erp: image returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}
