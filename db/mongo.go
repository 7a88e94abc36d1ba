package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"music-recognition/models"
)

const mongoTimeout = 10 * time.Second

type MongoClient struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoSong struct {
	ID      uint32 `bson:"_id"`
	Title   string `bson:"title"`
	Artists string `bson:"artists"`
	Album   string `bson:"album"`
	Lyrics  string `bson:"lyrics"`
	Cover   string `bson:"cover"`
	URL     string `bson:"url"`
}

type mongoFingerprint struct {
	SongID uint32  `bson:"songID"`
	Hash   string  `bson:"hash"`
	Offset float64 `bson:"offset"`
}

func NewMongoClient(uri string) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	c := &MongoClient{client: client, db: client.Database("music-recognition")}
	if err := c.setup(); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *MongoClient) setup() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	_, err := c.db.Collection("fingerprints").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "hash", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("error creating hash index: %w", err)
	}
	return nil
}

func (c *MongoClient) Close() error {
	return c.client.Disconnect(context.Background())
}

// nextSongID atomically increments the song counter document.
func (c *MongoClient) nextSongID(ctx context.Context) (uint32, error) {
	var counter struct {
		Seq uint32 `bson:"seq"`
	}
	err := c.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": "songs"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("error allocating song id: %w", err)
	}
	return counter.Seq, nil
}

func (c *MongoClient) InsertSong(song models.Song) (uint32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	id, err := c.nextSongID(ctx)
	if err != nil {
		return 0, err
	}

	_, err = c.db.Collection("songs").InsertOne(ctx, mongoSong{
		ID:      id,
		Title:   song.Title,
		Artists: song.Artists,
		Album:   song.Album,
		Lyrics:  song.Lyrics,
		Cover:   song.Cover,
		URL:     song.URL,
	})
	if err != nil {
		return 0, fmt.Errorf("error inserting song: %w", err)
	}
	return id, nil
}

func (c *MongoClient) InsertFingerprint(fp *models.Fingerprint) error {
	songID, bound := fp.SongID()
	if !bound {
		return errors.New("fingerprint has no bound song id")
	}

	pairs := fp.Pairs()
	if len(pairs) == 0 {
		return nil
	}

	docs := make([]any, len(pairs))
	for i, pair := range pairs {
		docs[i] = mongoFingerprint{SongID: songID, Hash: pair.Hash, Offset: pair.Offset}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err := c.db.Collection("fingerprints").InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("error inserting fingerprints: %w", err)
	}
	return nil
}

func (c *MongoClient) LookupHashes(hashes []string) ([]models.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cursor, err := c.db.Collection("fingerprints").Find(ctx,
		bson.M{"hash": bson.M{"$in": hashes}})
	if err != nil {
		return nil, fmt.Errorf("error querying fingerprints: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.Record
	for cursor.Next(ctx) {
		var doc mongoFingerprint
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding fingerprint document: %w", err)
		}
		records = append(records, models.Record{SongID: doc.SongID, Offset: doc.Offset})
	}
	return records, cursor.Err()
}

func (c *MongoClient) GetSong(songID uint32) (*models.Song, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	var doc mongoSong
	err := c.db.Collection("songs").FindOne(ctx, bson.M{"_id": songID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting song %d: %w", songID, err)
	}
	song := mongoSongToModel(doc)
	return &song, nil
}

func (c *MongoClient) ListSongs() ([]models.Song, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	cursor, err := c.db.Collection("songs").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing songs: %w", err)
	}
	defer cursor.Close(ctx)

	var songs []models.Song
	for cursor.Next(ctx) {
		var doc mongoSong
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding song document: %w", err)
		}
		songs = append(songs, mongoSongToModel(doc))
	}
	return songs, cursor.Err()
}

func (c *MongoClient) DeleteSong(songID uint32) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := c.db.Collection("fingerprints").DeleteMany(ctx, bson.M{"songID": songID}); err != nil {
		return fmt.Errorf("error deleting fingerprints for song %d: %w", songID, err)
	}
	if _, err := c.db.Collection("songs").DeleteOne(ctx, bson.M{"_id": songID}); err != nil {
		return fmt.Errorf("error deleting song %d: %w", songID, err)
	}
	return nil
}

func (c *MongoClient) DeleteAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, name := range []string{"fingerprints", "songs", "counters"} {
		if err := c.db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("error dropping collection %s: %w", name, err)
		}
	}
	return c.setup()
}

func (c *MongoClient) TotalSongs() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	n, err := c.db.Collection("songs").CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (c *MongoClient) TotalFingerprints() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	n, err := c.db.Collection("fingerprints").CountDocuments(ctx, bson.M{})
	return int(n), err
}

func mongoSongToModel(doc mongoSong) models.Song {
	return models.Song{
		ID:      doc.ID,
		Title:   doc.Title,
		Artists: doc.Artists,
		Album:   doc.Album,
		Lyrics:  doc.Lyrics,
		Cover:   doc.Cover,
		URL:     doc.URL,
	}
}
