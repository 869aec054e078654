package types

// ImageInfo is one cached fingerprint row.
type ImageInfo struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Algorithm   string `json:"algorithm"`
	HashBits    int    `json:"hash_bits"`
	Format      string `json:"format"`
	CreatedAt   string `json:"created_at"`
	ModifiedAt  string `json:"modified_at"`
	Size        int64  `json:"size"`
	Digest      string `json:"digest"`
	Fingerprint string `json:"fingerprint"`
}

// ImageMatch is a search hit.
type ImageMatch struct {
	Path       string  `json:"path"`
	Distance   int     `json:"distance"`
	Similarity float64 `json:"similarity"`
}
