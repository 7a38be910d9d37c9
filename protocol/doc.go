// Package protocol contém as peças mecânicas do subconjunto de HTTP/1.1 que o
// servidor fala: leitura de linhas com limite, linha de requisição, cabeçalhos,
// query string e montagem da resposta.
//
// Nada aqui conhece conexões, rate limit ou logging; o loop por conexão vive no
// pacote server.
package protocol
