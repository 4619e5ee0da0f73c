package s3client

import "testing"

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantPath   string
		wantErr    bool
	}{
		{uri: "s3://bucket", wantBucket: "bucket"},
		{uri: "s3://bucket/", wantBucket: "bucket"},
		{uri: "s3://bucket/raw/bls", wantBucket: "bucket", wantPath: "raw/bls"},
		{uri: "s3://bucket/raw/datausa/population.json", wantBucket: "bucket", wantPath: "raw/datausa/population.json"},
		{uri: "bucket/raw", wantErr: true},
		{uri: "s3:///raw", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, path, err := ParseS3URI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseS3URI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || path != tt.wantPath {
				t.Errorf("ParseS3URI() = (%q, %q), want (%q, %q)", bucket, path, tt.wantBucket, tt.wantPath)
			}
		})
	}
}
