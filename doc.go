// Package ragdesk embeds the developer-support RAG pipeline in a Go
// application: hybrid retrieval over a Redis vector index, prompt
// assembly with bounded conversation history, and generation with
// deterministic fallback across GigaChat, DeepSeek and OpenAI.
//
//	client, _ := ragdesk.New(
//	    ragdesk.WithRedis("localhost:6379", ""),
//	    ragdesk.WithEmbedder(myEmbedder),
//	    ragdesk.WithGigaChat(os.Getenv("GIGACHAT_API_KEY"), true),
//	)
//	defer client.Close()
//
//	_, _ = client.Knowledge().AddDocuments(ctx, docs)
//	answer, _ := client.Chat().Send(ctx, "", "как настроить пайплайн?", "")
package ragdesk
