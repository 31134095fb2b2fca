package storage

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Cloudinary configuration via environment variables:
// CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY, CLOUDINARY_API_SECRET,
// CLOUDINARY_FOLDER (optional).
//
// The core never inspects attachment bytes: clients upload base64 payloads
// through UploadAttachment and get back an opaque storage handle (the public
// ID). ResolveAttachmentURL turns a handle back into a fetchable delivery URL
// at read time.

// UploadAttachment uploads a base64 payload (raw or data URL) under publicID
// and returns the storage handle plus the delivery URL. An empty handle means
// the upload failed.
func UploadAttachment(base64Src string, publicID string) (handle string, fetchURL string) {
	if base64Src == "" {
		return "", ""
	}

	payload := base64Src
	if i := strings.Index(base64Src, ","); i != -1 {
		payload = base64Src[i+1:]
	}

	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")
	folder := os.Getenv("CLOUDINARY_FOLDER")
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		log.Println("media: missing Cloudinary env vars, upload skipped")
		return "", ""
	}

	finalPublicID := publicID
	if folder != "" {
		finalPublicID = folder + "/" + publicID
	}

	form := url.Values{}
	form.Add("file", "data:image/jpeg;base64,"+payload)
	form.Add("api_key", apiKey)
	if finalPublicID != "" {
		form.Add("public_id", finalPublicID)
	}

	// Cloudinary signed uploads require a SHA1 over the sorted params + secret.
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	form.Add("timestamp", timestamp)
	signatureString := fmt.Sprintf("public_id=%s&timestamp=%s%s", finalPublicID, timestamp, apiSecret)
	form.Add("signature", fmt.Sprintf("%x", sha1.Sum([]byte(signatureString))))

	endpoint := "https://api.cloudinary.com/v1_1/" + cloudName + "/image/upload"
	req, err := http.NewRequest("POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("media: build upload request: %v", err)
		return "", ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("media: upload request failed: %v", err)
		return "", ""
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil || res.StatusCode != http.StatusOK {
		log.Printf("media: upload failed, status %d", res.StatusCode)
		return "", ""
	}

	var cloudRes struct {
		PublicID  string `json:"public_id"`
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &cloudRes); err != nil || cloudRes.Error.Message != "" {
		log.Printf("media: upload response rejected: %s", cloudRes.Error.Message)
		return "", ""
	}

	fetchURL = cloudRes.SecureURL
	if fetchURL == "" {
		fetchURL = cloudRes.URL
	}
	handle = cloudRes.PublicID
	if handle == "" {
		handle = finalPublicID
	}
	return handle, fetchURL
}

// ResolveAttachmentURL maps a storage handle to a delivery URL. Best-effort: a
// missing or unresolvable handle yields "" and must never fail the message
// fetch around it.
func ResolveAttachmentURL(handle string) string {
	if handle == "" {
		return ""
	}
	// Absolute handles (legacy rows stored the full URL) pass through.
	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		return handle
	}
	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	if cloudName == "" {
		return ""
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s", cloudName, handle)
}
