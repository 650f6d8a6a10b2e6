package models

// UploadedImage — результат POST /files/upload/image.
// URL собирается клиентом: origin бэкенда + "/uploads/" + StoredName.
type UploadedImage struct {
	StoredName string `json:"stored_name"`
	URL        string `json:"-"`
}
