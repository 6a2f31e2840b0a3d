package vault

import (
	"context"
	"strconv"
)

// CommentCipher encrypts committee grade comments with a derived transit key.
// Each ciphertext is bound to its thesis and professor.
type CommentCipher struct {
	client  *Client
	keyName string
}

// NewCommentCipher ensures the key exists and returns the cipher
func NewCommentCipher(ctx context.Context, client *Client, keyName string) (*CommentCipher, error) {
	if err := client.CreateDerivedKey(ctx, keyName); err != nil {
		return nil, err
	}
	return &CommentCipher{client: client, keyName: keyName}, nil
}

// EncryptComment encrypts a grade comment
func (c *CommentCipher) EncryptComment(ctx context.Context, thesisID, professorID uint, plaintext string) (string, error) {
	return c.client.Encrypt(ctx, c.keyName, []byte(plaintext), commentContext(thesisID, professorID))
}

// DecryptComment decrypts a grade comment
func (c *CommentCipher) DecryptComment(ctx context.Context, thesisID, professorID uint, ciphertext string) (string, error) {
	plaintext, err := c.client.Decrypt(ctx, c.keyName, ciphertext, commentContext(thesisID, professorID))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func commentContext(thesisID, professorID uint) map[string]string {
	return map[string]string{
		"thesis_id":    strconv.FormatUint(uint64(thesisID), 10),
		"professor_id": strconv.FormatUint(uint64(professorID), 10),
		"purpose":      "grade_comment",
	}
}
