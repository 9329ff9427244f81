package flowlib_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowgraph"
	"github.com/frankframework/frankflow/flowlib"
	"github.com/frankframework/frankflow/flowparser"
	"github.com/frankframework/frankflow/flowsync"
	"github.com/frankframework/frankflow/lib/log"
)

const chainConfig = `<Configuration>
	<Adapter name="a">
		<Pipeline firstPipe="Echo">
			<EchoPipe name="Echo">
				<Forward name="success" path="Pipe" />
			</EchoPipe>
			<EchoPipe name="Pipe" />
			<Exits>
				<Exit path="READY" state="success" />
			</Exits>
		</Pipeline>
	</Adapter>
</Configuration>
`

func testContext(t *testing.T) context.Context {
	ctx := log.WithTB(context.Background(), t, nil)
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	t.Cleanup(cancel)
	return ctx
}

func assertPlaced(t *testing.T, g *flowgraph.Graph, id string, left, top float64) {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, id)
	assert.Equal(t, left, n.Left, id)
	assert.Equal(t, top, n.Top, id)
}

func TestCompile(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	g, s, err := flowlib.Compile(ctx, "config.xml", chainConfig, nil)
	require.NoError(t, err)
	assert.Len(t, s.Pipes, 2)

	assertPlaced(t, g, "EchoPipe(Echo)", 400, 100)
	assertPlaced(t, g, "EchoPipe(Pipe)", 400, 300)
	assertPlaced(t, g, "Exit(READY)", 800, 500)
	assert.Equal(t, []flowgraph.Forward{
		{Source: "EchoPipe(Echo)", Destination: "EchoPipe(Pipe)", Name: "success"},
	}, g.Forwards)

	_, _, err = flowlib.Compile(ctx, "config.xml", "<Configuration>\n</Configuratio>\n", nil)
	assert.NotEmpty(t, flowparser.Errors(ctx, err))
}

func TestEditor(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	e := flowlib.NewEditor(ctx, "config.xml", chainConfig, nil)
	defer e.Close()

	require.NoError(t, e.Settle(ctx))
	assert.Empty(t, e.Errors())
	assert.True(t, e.FlowNeedsUpdate())

	g, err := e.Graph(ctx)
	require.NoError(t, err)
	assert.False(t, e.FlowNeedsUpdate())
	assertPlaced(t, g, "EchoPipe(Echo)", 400, 100)

	require.NoError(t, e.Service.AddPipe(ctx, "EchoPipe", "Pipe"))
	require.NoError(t, e.Settle(ctx))
	assert.Contains(t, e.Text(), `<EchoPipe name="Pipe1" />`)
	assert.True(t, e.FlowNeedsUpdate())

	g, err = e.Graph(ctx)
	require.NoError(t, err)
	assertPlaced(t, g, "EchoPipe(Echo)", 400, 100)
	assertPlaced(t, g, "EchoPipe(Pipe)", 400, 300)
	added, ok := g.Node("EchoPipe(Pipe1)")
	require.True(t, ok)
	assert.True(t, added.Positioned())

	require.NoError(t, e.Service.EditNodePositions(ctx, "EchoPipe(Echo)", flowast.Point{X: 10, Y: 20}))
	require.NoError(t, e.Settle(ctx))
	assert.Contains(t, e.Text(), `flow:y="20"`)
	assert.Contains(t, e.Text(), `flow:x="10"`)
	assert.False(t, e.FlowNeedsUpdate())

	g, err = e.Graph(ctx)
	require.NoError(t, err)
	assertPlaced(t, g, "EchoPipe(Echo)", 10, 20)
}

func TestEditorUTF16(t *testing.T) {
	t.Parallel()

	const config = `<Configuration>
	<Adapter name="a">
		<Pipeline>
			<EchoPipe name="😀" x="1" />
		</Pipeline>
	</Adapter>
</Configuration>
`
	for _, utf16 := range []bool{false, true} {
		utf16 := utf16
		ctx := testContext(t)
		e := flowlib.NewEditor(ctx, "config.xml", config, &flowlib.EditorOptions{UTF16: utf16})
		defer e.Close()
		require.NoError(t, e.Settle(ctx))

		require.NoError(t, e.Service.RequestAttributeEdits(ctx, "EchoPipe(😀)", []flowsync.ChangedAttribute{
			{Name: "x", Value: "5"},
		}, false))
		require.NoError(t, e.Settle(ctx))
		assert.Equal(t, strings.Replace(config, `x="1"`, `x="5"`, 1), e.Text(), "utf16=%v", utf16)
	}
}

func TestEditorErrors(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	e := flowlib.NewEditor(ctx, "config.xml", chainConfig+"x", nil)
	defer e.Close()

	require.NoError(t, e.Settle(ctx))
	require.Len(t, e.Errors(), 1)
	assert.Contains(t, e.Errors()[0].Message, "outside of root")
	assert.Len(t, e.Structure().Pipes, 2)
}

type memStore struct {
	mu    sync.Mutex
	files map[string]string
}

func (s *memStore) GetFileFromConfiguration(ctx context.Context, configuration, path string) (*flowsync.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &flowsync.File{
		Configuration: configuration,
		Path:          path,
		XML:           s.files[configuration+"/"+path],
	}, nil
}

func (s *memStore) UpdateFileForConfiguration(ctx context.Context, f *flowsync.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[f.Configuration+"/"+f.Path] = f.XML
	return nil
}

func (s *memStore) get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[key]
}

func TestOpenEditor(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	store := &memStore{files: map[string]string{"main/Configuration.xml": chainConfig}}
	e, err := flowlib.OpenEditor(ctx, store, "main", "Configuration.xml", nil)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Settle(ctx))
	require.NoError(t, e.Service.SetFirstPipe(ctx, "EchoPipe(Pipe)"))
	require.NoError(t, e.Settle(ctx))

	f, err := e.Session.Current(ctx)
	require.NoError(t, err)
	assert.False(t, f.Saved)
	assert.Equal(t, "Pipe", f.Structure.FirstPipe)

	require.NoError(t, e.Save(ctx))
	saved := store.get("main/Configuration.xml")
	assert.True(t, strings.Contains(saved, `firstPipe="Pipe"`), saved)
}
