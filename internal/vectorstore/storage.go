package vectorstore

import "agentchat/internal/domain"

// Storage persists vectors and supports similarity search.
type Storage = domain.VectorStore
