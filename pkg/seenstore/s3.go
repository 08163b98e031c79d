package seenstore

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const bucketRegion = "eu-central-1"

type s3Store struct {
	sync.Mutex
	bucketName string
	key        string
	seen       map[string]bool
	order      []string

	s3 *s3.S3
}

// NewS3Store keeps the seen ids as a JSON array at <alert>.seen.json
// in the given bucket. The whole object is read once at startup and
// rewritten on every Add, the id list stays small enough for that.
func NewS3Store(bucketName, alert string) (Store, error) {
	s := &s3Store{
		bucketName: bucketName,
		key:        alert + ".seen.json",
		seen:       make(map[string]bool),
	}

	err := s.open()
	if err != nil {
		return nil, err
	}

	err = s.load()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *s3Store) open() (err error) {
	s.s3 = s3.New(session.New())

	inp := &s3.CreateBucketInput{
		Bucket: aws.String(s.bucketName),
		CreateBucketConfiguration: &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(bucketRegion),
		},
	}

	_, err = s.s3.CreateBucket(inp)

	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeBucketAlreadyOwnedByYou:
				err = nil
			}
		}
	}

	return
}

func (s *s3Store) load() error {
	out, err := s.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil
		}
		return err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return err
	}

	var ids []string
	err = json.Unmarshal(data, &ids)
	if err != nil {
		slog.Warn("seen state corrupt, starting empty", "bucket", s.bucketName, "key", s.key, "err", err.Error())
		return nil
	}

	for _, id := range ids {
		if !s.seen[id] {
			s.seen[id] = true
			s.order = append(s.order, id)
		}
	}

	return nil
}

func (s *s3Store) Has(id string) bool {
	s.Lock()
	defer s.Unlock()
	return s.seen[id]
}

func (s *s3Store) Add(id string) error {
	s.Lock()
	defer s.Unlock()

	if s.seen[id] {
		return nil
	}
	s.seen[id] = true
	s.order = append(s.order, id)

	data, err := json.Marshal(s.order)
	if err != nil {
		return err
	}

	_, err = s.s3.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(s.key),
		Body:        aws.ReadSeekCloser(bytes.NewReader(data)),
		ContentType: aws.String("application/json"),
	})

	return err
}

func (s *s3Store) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.seen)
}

func (s *s3Store) Close() error {
	return nil
}
