package sdk

import (
	"context"
	"net/http"
	"strings"
)

const defaultFileContentType = "application/octet-stream"

func (s *storeScope) fileEndpoint(key string) (Endpoint, error) {
	seg, err := keySegment([]string{key})
	if err != nil {
		return Endpoint{}, err
	}
	return s.endpoint(scopeBinary).AddAction(seg), nil
}

func (s *storeScope) uploadRequest(key, contentType string, data []byte) pending[*ObjectModificationResponse] {
	ep, err := s.fileEndpoint(key)
	if err != nil {
		return failed[*ObjectModificationResponse](err)
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultFileContentType
	}
	if data == nil {
		data = []byte{}
	}
	req, err := s.request(http.MethodPut, ep, data, contentType)
	if err != nil {
		return failed[*ObjectModificationResponse](err)
	}
	return pending[*ObjectModificationResponse]{c: s.client, req: req, build: NewObjectModificationResponse}
}

// Upload stores data as the file key. The body is sent as is with
// contentType, which defaults to application/octet-stream.
//
// Example:
//
//	avatar, _ := os.ReadFile("avatar.png")
//	resp, err := user.Upload(ctx, "avatar.png", "image/png", avatar)
//	if err == nil && resp.WasModified("avatar.png") {
//	    log.Println("uploaded")
//	}
func (s *storeScope) Upload(ctx context.Context, key, contentType string, data []byte) (*ObjectModificationResponse, error) {
	return s.uploadRequest(key, contentType, data).wait(ctx)
}

// UploadAsync is the callback form of Upload.
func (s *storeScope) UploadAsync(ctx context.Context, key, contentType string, data []byte, onSuccess func(*ObjectModificationResponse), onFailure FailureFunc) error {
	return s.uploadRequest(key, contentType, data).async(ctx, onSuccess, onFailure)
}

func (s *storeScope) downloadRequest(key string) pending[*FileResponse] {
	ep, err := s.fileEndpoint(key)
	if err != nil {
		return failed[*FileResponse](err)
	}
	req, err := s.request(http.MethodGet, ep, nil, "")
	if err != nil {
		return failed[*FileResponse](err)
	}
	req.Header.Set("Accept", "*/*")
	return pending[*FileResponse]{c: s.client, req: req, build: func(resp *Response) *FileResponse {
		return NewFileResponse(key, resp)
	}}
}

// Download fetches the file key.
func (s *storeScope) Download(ctx context.Context, key string) (*FileResponse, error) {
	return s.downloadRequest(key).wait(ctx)
}

// DownloadAsync is the callback form of Download.
func (s *storeScope) DownloadAsync(ctx context.Context, key string, onSuccess func(*FileResponse), onFailure FailureFunc) error {
	return s.downloadRequest(key).async(ctx, onSuccess, onFailure)
}

func (s *storeScope) deleteFileRequest(key string) pending[*ObjectModificationResponse] {
	ep, err := s.fileEndpoint(key)
	if err != nil {
		return failed[*ObjectModificationResponse](err)
	}
	return jsonRequest(s, http.MethodDelete, ep, nil, NewObjectModificationResponse)
}

// DeleteFile removes the file key.
func (s *storeScope) DeleteFile(ctx context.Context, key string) (*ObjectModificationResponse, error) {
	return s.deleteFileRequest(key).wait(ctx)
}

// DeleteFileAsync is the callback form of DeleteFile.
func (s *storeScope) DeleteFileAsync(ctx context.Context, key string, onSuccess func(*ObjectModificationResponse), onFailure FailureFunc) error {
	return s.deleteFileRequest(key).async(ctx, onSuccess, onFailure)
}
